package shared

import (
	"time"

	"github.com/voltdrop/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListQuery 列表接口的公共查询参数，时间按 RFC3339 解析
type ListQuery struct {
	Page        int       `form:"page"`
	PageSize    int       `form:"page_size"`
	CreatedFrom time.Time `form:"created_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo   time.Time `form:"created_to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// BindQuery 绑定查询参数，失败时写 400 响应
func BindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		RespondError(c, response.CodeBadRequest, "invalid query parameters", err)
		return false
	}
	return true
}

// Paging 页码从 1 开始，页大小限制在 [1, 100]
func (q ListQuery) Paging() (int, int) {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// CreatedRange 未传的边界返回 nil
func (q ListQuery) CreatedRange() (*time.Time, *time.Time) {
	return optionalTime(q.CreatedFrom), optionalTime(q.CreatedTo)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// BuildPagination 根据总数计算分页信息
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
