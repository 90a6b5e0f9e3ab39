package notify

// ProductNotifier is the outbound mutation-event contract shared by the
// webhook and mail notifiers.
type ProductNotifier interface {
	ProductChanged(action, id string)
}

// Multi fans one mutation event out to every configured notifier.
type Multi struct {
	targets []ProductNotifier
}

func NewMulti(targets ...ProductNotifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) ProductChanged(action, id string) {
	for _, target := range m.targets {
		target.ProductChanged(action, id)
	}
}
