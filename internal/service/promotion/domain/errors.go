package domain

import "errors"

// ErrorKind 业务错误分类，接口层据此映射 HTTP 状态码。
type ErrorKind int

const (
	KindNotFound          ErrorKind = iota + 1 // 资源不存在或已删除
	KindConflict                               // 与现存状态冲突
	KindInvalidState                           // 当前状态下不允许该操作
	KindResourceExhausted                      // 库存或配额耗尽
)

// Error 携带分类和稳定错误码的业务错误。
// 所有校验失败都发生在任何写入之前，调用方拿到的错误即是全部结果。
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}

var (
	ErrActivityNotFound   = &Error{Kind: KindNotFound, Code: "ACTIVITY_NOT_FOUND", Msg: "活动不存在或已删除"}
	ErrGoodsNotFound      = &Error{Kind: KindNotFound, Code: "GOODS_NOT_FOUND", Msg: "促销商品不存在或已删除"}
	ErrGroupOrderNotFound = &Error{Kind: KindNotFound, Code: "GROUP_ORDER_NOT_FOUND", Msg: "拼团单不存在"}

	ErrNameExists         = &Error{Kind: KindConflict, Code: "ACTIVITY_NAME_EXISTS", Msg: "同名活动已存在"}
	ErrGroupAlreadyJoined = &Error{Kind: KindConflict, Code: "GROUP_ALREADY_JOINED", Msg: "已参加该团"}
	ErrGroupAlreadyFull   = &Error{Kind: KindConflict, Code: "GROUP_ALREADY_FULL", Msg: "该团已成团"}

	ErrCannotUpdate    = &Error{Kind: KindInvalidState, Code: "ACTIVITY_CANNOT_UPDATE", Msg: "进行中的活动只允许修改展示类字段"}
	ErrCannotDelete    = &Error{Kind: KindInvalidState, Code: "ACTIVITY_CANNOT_DELETE", Msg: "进行中的活动不允许删除"}
	ErrNotActive       = &Error{Kind: KindInvalidState, Code: "ACTIVITY_NOT_ACTIVE", Msg: "活动不在进行中"}
	ErrGroupExpired    = &Error{Kind: KindInvalidState, Code: "GROUP_EXPIRED", Msg: "该团已超过成团截止时间"}
	ErrInvalidQuantity = &Error{Kind: KindInvalidState, Code: "INVALID_QUANTITY", Msg: "数量必须为正数"}

	ErrStockInsufficient = &Error{Kind: KindResourceExhausted, Code: "STOCK_INSUFFICIENT", Msg: "库存不足"}
	ErrLimitExceeded     = &Error{Kind: KindResourceExhausted, Code: "LIMIT_EXCEEDED", Msg: "超过单用户限购数量"}
)

// KindOf 提取业务错误分类，非业务错误返回 0。
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
