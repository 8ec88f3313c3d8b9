package models

// Identity values carried in JWT claims.
const (
	IdentityAdministrator = "administrator"
	IdentityTenant        = "tenant"
)

// User admin account. Tenants sign in with their own Tenant record.
type User struct {
	ID       int    `gorm:"primary_key;auto_increment"`
	Username string `gorm:"type:varchar(255);unique;not null"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Identity string `gorm:"type:varchar(255);not null"` // administrator
}
