package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sqlDialect 只区分 postgres 与 sqlite 两种部署
type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

func dialectOf(db *gorm.DB) sqlDialect {
	if db == nil || db.Dialector == nil {
		return dialectSQLite
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return dialectPostgres
	default:
		return dialectSQLite
	}
}

// jsonText 取 JSON 文本列中的字符串字段
// shipping_address 可能不是合法 JSON，非对象文本一律取 NULL
func (d sqlDialect) jsonText(column, key string) string {
	if d == dialectPostgres {
		return fmt.Sprintf(`(CASE WHEN %s ~ '^\s*\{' THEN (%s::jsonb ->> '%s') END)`, column, column, key)
	}
	return fmt.Sprintf(`(CASE WHEN json_valid(%s) THEN json_extract(%s, '$."%s"') END)`, column, column, key)
}

// likeAny 生成多列模糊匹配条件，postgres 下不区分大小写
// term 中的 % 与 _ 按字面量匹配
func (d sqlDialect) likeAny(columns []string, term string) (string, []interface{}) {
	operator := "LIKE"
	if d == dialectPostgres {
		operator = "ILIKE"
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s %s ? ESCAPE '\'`, column, operator))
		args = append(args, pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
