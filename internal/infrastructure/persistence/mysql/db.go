package mysql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 1. 生产使用MySQL, 本地开发和测试使用SQLite(同一套GORM模型)
// 2. 配置连接池参数
// 3. debug模式打印SQL
// 4. 自动迁移表结构
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	// 1. 选择方言
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.Database.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.Database.SQLitePath))
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	// 3. 连接数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // 唯一索引冲突统一转换为gorm.ErrDuplicatedKey
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	if cfg.Database.Driver == config.DriverSQLite {
		// SQLite只允许一个写连接, 内存库的多个连接也会各自看到不同的库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	zap.L().Info("数据库连接成功", zap.String("database", cfg.Database.Describe()))

	// 6. 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// NewInMemoryDB 创建独立的SQLite内存库
// 每次调用得到一个全新的库, 测试之间互不影响
func NewInMemoryDB() (*gorm.DB, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: MemoryPath,
		},
	}
	return NewDB(cfg)
}

// MemoryPath 配置为该值时使用内存库
const MemoryPath = ":memory:"

func sqliteDSN(path string) string {
	if path == MemoryPath {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path)
}

// autoMigrate 自动迁移表结构
// 生产环境应使用版本化的迁移脚本
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&LibrarianModel{},
		&BookModel{},
		&BorrowRecordModel{},
		&LateFeePaymentModel{},
	)
}

// LibrarianModel GORM馆员模型
// domain/librarian/entity.go是领域实体, 不依赖GORM, Repository负责两者转换
type LibrarianModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码(bcrypt)"`
	Name      string         `gorm:"size:50;not null;comment:姓名"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (LibrarianModel) TableName() string {
	return "librarians"
}

// BookModel GORM图书模型
// 1. ISBN唯一索引, 防止重复入库
// 2. available_copies只通过UpdateAvailability原子更新
type BookModel struct {
	ID              uint      `gorm:"primaryKey"`
	Title           string    `gorm:"index;size:200;not null;comment:书名"`
	Author          string    `gorm:"index;size:100;not null;comment:作者"`
	ISBN            string    `gorm:"uniqueIndex;size:13;not null;comment:ISBN"`
	TotalCopies     int       `gorm:"not null;comment:馆藏总数"`
	AvailableCopies int       `gorm:"not null;comment:可借数量"`
	CreatedAt       time.Time `gorm:"comment:入库时间"`
	UpdatedAt       time.Time `gorm:"comment:更新时间"`
}

func (BookModel) TableName() string {
	return "books"
}

// BorrowRecordModel GORM借阅记录模型
// 记录从不删除, 因此没有DeletedAt
// (patron_id, book_id)复合索引服务于在借查询和报表
type BorrowRecordModel struct {
	ID         uint       `gorm:"primaryKey"`
	PatronID   string     `gorm:"index:idx_patron_book;size:6;not null;comment:读者证号"`
	BookID     uint       `gorm:"index:idx_patron_book;not null;comment:图书ID"`
	BorrowedAt time.Time  `gorm:"not null;comment:借阅时间"`
	DueAt      time.Time  `gorm:"index;not null;comment:到期时间"`
	ReturnedAt *time.Time `gorm:"index;comment:归还时间(NULL表示在借)"`
	CreatedAt  time.Time  `gorm:"comment:创建时间"`
}

func (BorrowRecordModel) TableName() string {
	return "borrow_records"
}

// LateFeePaymentModel GORM滞纳金支付台账
// 金额用decimal(10,2)存储, 避免浮点误差
type LateFeePaymentModel struct {
	ID             uint            `gorm:"primaryKey"`
	TransactionID  string          `gorm:"uniqueIndex;size:64;not null;comment:网关交易号"`
	PatronID       string          `gorm:"index;size:6;not null;comment:读者证号"`
	BookID         uint            `gorm:"not null;comment:图书ID"`
	BorrowRecordID uint            `gorm:"index;not null;comment:借阅记录ID"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:扣款金额"`
	RefundedAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;comment:累计退款"`
	Status         int8            `gorm:"not null;comment:状态 1已支付 2部分退款 3已退款"`
	Description    string          `gorm:"size:255;comment:扣款描述"`
	CreatedAt      time.Time       `gorm:"comment:创建时间"`
	UpdatedAt      time.Time       `gorm:"comment:更新时间"`
}

func (LateFeePaymentModel) TableName() string {
	return "late_fee_payments"
}
