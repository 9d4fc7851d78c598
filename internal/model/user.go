package model

// UserRole is carried in the JWT issued by the external auth service.
type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)
