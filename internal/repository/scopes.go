package repository

import (
	"errors"

	"gorm.io/gorm"
)

// maxPageSize 仓储层兜底上限，防止绕过 handler 的调用一次拉全表
const maxPageSize = 200

// paginate 分页 scope；pageSize<=0 表示不分页
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}

// firstOrNil 查询单条记录，未找到时返回 (nil, nil)
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var row T
	if err := query.First(&row, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
