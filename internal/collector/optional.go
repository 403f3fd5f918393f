package collector

// Optional 显式区分“有值”与“缺失”，避免用零值判断字段是否存在
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Present() bool {
	return o.present
}

// OrElse 缺失时返回 def
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}
