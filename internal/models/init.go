package models

import (
	"errors"
	"strings"

	"github.com/voltdrop/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// ErrDefaultPasswordInRelease release 模式禁止使用内置默认密码
var ErrDefaultPasswordInRelease = errors.New("default admin password is not allowed in release mode")

// InitDefaultAdmin 库中没有任何管理员时创建首个超级管理员
// 已有管理员时不做任何修改
func InitDefaultAdmin(username, password string, release bool) error {
	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}
	if password == "" {
		if release {
			return ErrDefaultPasswordInRelease
		}
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := DB.Create(&Admin{Username: username, PasswordHash: string(hash), IsSuper: true}).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Infow("default_admin_created", "username", username)
	}
	return nil
}
