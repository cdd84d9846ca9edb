package croutine

import "github.com/jediknight00/apollo/pkg/data"

// Factory pairs a body constructor with the data source that drives it.
// It only lives for the duration of one CreateTask call.
type Factory struct {
	Create  func() Func
	Visitor data.Visitor
}

// NewFactory builds a factory whose body handles one message from visitor per
// run. After handling a message it yields so peers get a turn; when the
// buffer is empty it waits for the next notify.
func NewFactory[T any](visitor *data.ChannelVisitor[T], fn func(T)) Factory {
	return Factory{
		Create: func() Func {
			return func() Result {
				msg, ok := visitor.TryFetch()
				if !ok {
					return Wait
				}
				fn(msg)
				return Yield
			}
		},
		Visitor: visitor,
	}
}
