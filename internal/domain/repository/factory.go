package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Users() UserRepository
	Refunds() RefundRepository
	Audits() AuditRepository
}
