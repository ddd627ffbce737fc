package loan

import (
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// DateLayout 返回给读者的日期格式
const DateLayout = "2006-01-02"

// Clock 当前时间, 测试时替换
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// outcome 指标的result标签: 业务拒绝和系统故障分开统计
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.IsServerError(err):
		return "error"
	default:
		return "rejected"
	}
}
