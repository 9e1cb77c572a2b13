// Package models contains data structures for the application's domain models.
package models

// User represents a registered account. The password column holds an opaque
// credential hash produced outside this package.
type User struct {
	ID       uint   `gorm:"primaryKey;column:id" json:"id"`
	Username string `gorm:"column:username;not null;uniqueIndex:idx_users_username" json:"username"`
	Email    string `gorm:"column:email;not null;uniqueIndex:idx_users_email" json:"email"`
	Password string `gorm:"column:password;not null" json:"-"`
	IsAdmin  bool   `gorm:"column:isAdmin;not null;default:false" json:"is_admin"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
