// user.go

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
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name               string             `bson:"name" json:"name"`
	Email              string             `bson:"email" json:"email"`
	Password           string             `bson:"password" json:"-"`
	Avatar             Image              `bson:"avatar" json:"avatar"`
	Role               string             `bson:"role" json:"role"`
	ResetPasswordToken string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordTime  *time.Time         `bson:"resetPasswordTime,omitempty" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
