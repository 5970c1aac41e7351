package zookeeper

import "testing"

func TestParseSeq(t *testing.T) {
	tests := []struct {
		node    string
		want    int
		wantErr bool
	}{
		{"_c_aab3ef1c5d9e4f0a8b11-lock-0000000001", 1, false},
		{"_c_0b7e2d914c5a6f38e022-lock-0000000002", 2, false},
		{"lock-0000000042", 42, false},
		{"lock-", 0, true},
		{"nodash", 0, true},
		{"lock-notanumber", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSeq(tt.node)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSeq(%q) err = %v; wantErr %v", tt.node, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseSeq(%q) = %d; want %d", tt.node, got, tt.want)
		}
	}
}

// 受保护节点名的 guid 前缀会干扰字符串排序：
// 序号 2 的节点名可以排在序号 1 之前，持锁判定必须按序号比较。
func TestLockPrevOrdersBySequence(t *testing.T) {
	first := "_c_aab3ef1c5d9e4f0a8b11-lock-0000000001"
	second := "_c_0b7e2d914c5a6f38e022-lock-0000000002"
	third := "_c_9f1c2a3b4d5e6f708192-lock-0000000003"
	children := []string{second, third, first}

	held, _, err := lockPrev(children, first)
	if err != nil {
		t.Fatal(err)
	}
	if !held {
		t.Error("lowest sequence must hold the lock")
	}

	held, prev, err := lockPrev(children, second)
	if err != nil {
		t.Fatal(err)
	}
	if held {
		t.Error("sequence 2 must not hold the lock while sequence 1 exists")
	}
	if prev != first {
		t.Errorf("prev = %q; want the sequence-1 node", prev)
	}

	held, prev, err = lockPrev(children, third)
	if err != nil {
		t.Fatal(err)
	}
	if held {
		t.Error("sequence 3 must not hold the lock")
	}
	if prev != second {
		t.Errorf("prev = %q; want the sequence-2 node", prev)
	}
}

func TestLockPrevMissingOwnNode(t *testing.T) {
	children := []string{"_c_aab3ef1c5d9e4f0a8b11-lock-0000000001"}
	if _, _, err := lockPrev(children, "_c_ffff000011112222333-lock-0000000009"); err == nil {
		t.Error("expected error when own node is absent from children")
	}
}
