package domain

// ControllerRegistry 持有当前费率控制器身份。
// 构造时为空，仅能通过显式管理操作替换，不会被隐式清除。
type ControllerRegistry struct {
	controller Address
}

// NewControllerRegistry 创建注册表，initial 为空表示未设置控制器
func NewControllerRegistry(initial Address) *ControllerRegistry {
	return &ControllerRegistry{controller: initial}
}

// Set 无条件替换控制器身份，传空地址即为清除
func (r *ControllerRegistry) Set(controller Address) {
	r.controller = controller
}

// Current 返回当前控制器身份，未设置时 ok 为假
func (r *ControllerRegistry) Current() (Address, bool) {
	if r.controller == "" {
		return "", false
	}
	return r.controller, true
}

// Is 判断给定地址是否为当前控制器
func (r *ControllerRegistry) Is(addr Address) bool {
	return r.controller != "" && r.controller == addr
}
