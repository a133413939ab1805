package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/titof2710/Loto-sub000/models"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var errUsernameTaken = errors.New("username already taken")

// RegisterUser creates a caller account with the default "user" role. Most
// accounts are created once at the club and reused every evening, so the
// flow favors clear errors over recovery: a taken username is reported as
// such even when the clash lands on the insert instead of the lookup.
func RegisterUser(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return errUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	role := models.Role{Name: "user", Description: "regular user"}
	if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("default role: %w", err)
	}

	rid := role.ID
	user := models.User{Username: username, HashedPassword: hash, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		// someone grabbed the name between the lookup and the insert
		if isUniqueConstraintError(err) {
			return errUsernameTaken
		}
		return err
	}
	return nil
}

// Authenticate checks a username/password pair. The error never says which
// half was wrong.
func Authenticate(username, password string) (models.User, error) {
	var user models.User
	err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		return models.User{}, errors.New("bad username or password")
	}
	if bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)) != nil {
		return models.User{}, errors.New("bad username or password")
	}
	return user, nil
}

// isUniqueConstraintError matches the postgres duplicate-key message without
// pulling driver error codes into the handler path.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "already exists")
}
