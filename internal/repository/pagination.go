package repository

import "gorm.io/gorm"

const maxPageSize = 100

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize)
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// clampPageSize 限制单页最大条数
func clampPageSize(pageSize int) int {
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}
