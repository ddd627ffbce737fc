package book

import (
	"time"
)

// Book 图书实体(聚合根)
// 1. ISBN是业务唯一标识(数据库唯一索引保证)
// 2. TotalCopies创建后不变
// 3. AvailableCopies只由借阅/归还改变, 始终满足 0 <= AvailableCopies <= TotalCopies
type Book struct {
	ID              uint
	Title           string
	Author          string
	ISBN            string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBook 创建新图书(工厂方法), 可借副本数等于总副本数
// 参数需由调用方先校验
func NewBook(title, author, isbn string, totalCopies int) *Book {
	now := time.Now()
	return &Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsAvailable 是否还有可借副本
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// CanAdjust 可借数量调整delta后是否仍在[0, TotalCopies]内
func (b *Book) CanAdjust(delta int) bool {
	next := b.AvailableCopies + delta
	return next >= 0 && next <= b.TotalCopies
}

// OnLoan 借出中的副本数
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
