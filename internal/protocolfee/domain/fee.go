package domain

const (
	// MaxProtocolFee 单方向协议费上限，单位为百分之一基点（0.4%）
	MaxProtocolFee uint32 = 4000

	feeBits          = 12
	feeMask   uint32 = (1 << feeBits) - 1
	maxRawFee uint32 = (1 << (2 * feeBits)) - 1
)

// ProtocolFee 协议费率，两个方向各自独立计费。
// 线上表示为一个 24 位整数：低 12 位为 zero-for-one 方向，高 12 位为 one-for-zero 方向。
type ProtocolFee struct {
	ZeroForOne uint32
	OneForZero uint32
}

// DecodeProtocolFee 从打包的 24 位整数解出两个方向的费率
func DecodeProtocolFee(raw uint32) ProtocolFee {
	return ProtocolFee{
		ZeroForOne: raw & feeMask,
		OneForZero: (raw >> feeBits) & feeMask,
	}
}

// Encode 打包为 24 位整数表示
func (f ProtocolFee) Encode() uint32 {
	return (f.OneForZero << feeBits) | (f.ZeroForOne & feeMask)
}

// Valid 两个方向的费率均不超过 MaxProtocolFee 时为真
func (f ProtocolFee) Valid() bool {
	return f.ZeroForOne <= MaxProtocolFee && f.OneForZero <= MaxProtocolFee
}

// ValidFeeValue 校验原始费率值：必须落在 24 位域内，且每个方向均在上限内。
// 纯函数，对任何输入都不会出错，只返回真假。
func ValidFeeValue(raw uint32) bool {
	if raw > maxRawFee {
		return false
	}
	return DecodeProtocolFee(raw).Valid()
}
