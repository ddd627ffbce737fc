package librarian

import (
	"time"
)

// Librarian 馆员账号, 借还、收费等写操作都需要馆员登录
type Librarian struct {
	ID        uint
	Email     string
	Password  string // bcrypt哈希
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLibrarian 创建馆员, 密码需已哈希
func NewLibrarian(email, hashedPassword, name string) *Librarian {
	now := time.Now()
	return &Librarian{
		Email:     email,
		Password:  hashedPassword,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
