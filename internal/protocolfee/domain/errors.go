package domain

import "errors"

// 协议费核心错误类型。除池初始化时的费率拉取外，
// 任何一种错误都会使整个请求失败且不留下部分状态变更。
var (
	// ErrUnauthorized 调用方既不是所有者也不是当前费率控制器
	ErrUnauthorized = errors.New("caller is not the owner or the fee controller")
	// ErrFeeTooLarge 费率超出协议上限
	ErrFeeTooLarge = errors.New("protocol fee exceeds the maximum allowed rate")
	// ErrBudgetExhausted 剩余资源预算不足以安全调用费率控制器
	ErrBudgetExhausted = errors.New("insufficient budget to query the fee controller")
	// ErrInsufficientAccrued 提取金额超过已累计的协议费余额
	ErrInsufficientAccrued = errors.New("collect amount exceeds accrued balance")
	// ErrArithmeticOverflow 入账加法溢出，视为上游记账缺陷
	ErrArithmeticOverflow = errors.New("accrued fee addition overflow")
)
