package usecase

import "sync"

// 注文単位の直列化。updateとwebhookが同じ注文の
// read-then-writeを交互に挟んでlost updateになるのを防ぐ。
// PaymentUsecaseとWebhookUsecaseで同じインスタンスを共有すること。
type OrderLocks struct {
	mu    sync.Mutex
	locks map[string]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func NewOrderLocks() *OrderLocks {
	return &OrderLocks{locks: make(map[string]*orderLock)}
}

// Lockは注文IDに対するロックを取り、解放関数を返す。
// 使われなくなったエントリは参照カウントで回収する。
func (l *OrderLocks) Lock(orderID string) func() {
	l.mu.Lock()
	e, ok := l.locks[orderID]
	if !ok {
		e = &orderLock{}
		l.locks[orderID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, orderID)
		}
		l.mu.Unlock()
	}
}
