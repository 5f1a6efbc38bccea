package transaction

import "context"

// Tx は進行中のトランザクションを表すインターフェース
// 予約本体とスロット枠の書き込みを原子的に行うための抽象化で、
// ドメイン層がsqlx等のドライバーに依存しないようにする
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	// コミット済みの後に defer から呼ばれても安全であること
	Rollback() error
}

// Manager はトランザクションの開始を担うインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}
