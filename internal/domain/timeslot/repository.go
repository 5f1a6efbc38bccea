package timeslot

import "context"

// Repository はタイムスロットリポジトリのインターフェース
// スロットとアクティビティは管理者管理のため読み取り操作のみを持つ
type Repository interface {
	// GetByID はIDからスロットを取得する（アクティビティ込み）
	GetByID(ctx context.Context, id int64) (*TimeSlot, error)

	// ListByActivity はアクティビティに属するスロット一覧を返す
	ListByActivity(ctx context.Context, activityID int64) ([]*TimeSlot, error)

	// ListAll は全スロット一覧を返す（アクティビティ込み）
	ListAll(ctx context.Context) ([]*TimeSlot, error)

	// ListActivities は全アクティビティ一覧を返す
	ListActivities(ctx context.Context) ([]*Activity, error)
}
