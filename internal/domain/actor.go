package domain

// ActorRole differentiates end-users from administrators. Identity itself is
// an external collaborator; only the id and role reach this service.
type ActorRole string

const (
	RoleUser  ActorRole = "USER"
	RoleAdmin ActorRole = "ADMIN"
)
