package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username            string             `bson:"username" json:"username"`
	Email               string             `bson:"email" json:"email"`
	Password            string             `bson:"password" json:"-"` // bcrypt hash
	JoinDate            time.Time          `bson:"joinDate" json:"joinDate"`
	LastLogin           *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	FailedLoginAttempts int                `bson:"failedLoginAttempts" json:"-"`
	LastFailedLogin     *time.Time         `bson:"lastFailedLogin,omitempty" json:"-"`
	IsActive            bool               `bson:"isActive" json:"isActive"`
	Role                string             `bson:"role" json:"role"`
	Profile             map[string]string  `bson:"profile,omitempty" json:"profile,omitempty"`
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	JoinDate time.Time         `json:"joinDate"`
	Profile  map[string]string `json:"profile,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID.Hex(),
		Username: u.Username,
		JoinDate: u.JoinDate,
		Profile:  u.Profile,
	}
}

// UserPatch lists the user fields an update may touch. Nil fields are left alone.
// ProfileSet and ProfileUnset address keys inside the profile map.
type UserPatch struct {
	Username     *string
	Email        *string
	Password     *string // already hashed
	ProfileSet   map[string]string
	ProfileUnset []string
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil &&
		len(p.ProfileSet) == 0 && len(p.ProfileUnset) == 0
}
