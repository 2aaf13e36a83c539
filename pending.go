package resolver

import (
	"sync"

	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/protocol"
)

// pendingRequest 一个等待响应的请求
type pendingRequest struct {
	// resp 容量为 1，最多写入一次
	resp chan *protocol.Message
}

// pendingTable 待决请求表
//
// 条目在请求发出之前插入，匹配或超时时删除。
// deliver 先删除再写入，所以每个请求至多收到一个响应，每个响应至多交给一个请求。
type pendingTable struct {
	mu      sync.Mutex
	entries map[correlation.Key]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[correlation.Key]*pendingRequest)}
}

// reserve 分配关联键并插入条目
func (t *pendingTable) reserve(keys correlation.Generator) (correlation.Key, *pendingRequest) {
	p := &pendingRequest{resp: make(chan *protocol.Message, 1)}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := keys.Next()
	for _, taken := t.entries[key]; taken || !key.IsValid(); _, taken = t.entries[key] {
		key = keys.Next()
	}
	t.entries[key] = p
	return key, p
}

// deliver 把响应交给匹配的条目，没有匹配返回 false
func (t *pendingTable) deliver(key correlation.Key, msg *protocol.Message) bool {
	t.mu.Lock()
	p, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	p.resp <- msg
	return true
}

// remove 删除条目，条目已被 deliver 取走时返回 false
func (t *pendingTable) remove(key correlation.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
