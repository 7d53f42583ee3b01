package repository

import (
	"strings"
	"time"

	"github.com/voltdrop/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 后台管理员数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	Create(admin *models.Admin) error
	TouchLogin(id uint, at time.Time) error
}

type GormAdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 用户名不区分大小写
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	return firstOrNil[models.Admin](r.db.Where("LOWER(username) = ?", strings.ToLower(username)))
}

func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Admin](r.db, id)
}

func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// TouchLogin 只更新 last_login_at，不触碰 token 版本
func (r *GormAdminRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}
