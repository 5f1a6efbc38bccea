package timeslot

import "time"

// Activity はタイムスロットを束ねるサブアクティビティを表す（例: 脱出ゲームA）
type Activity struct {
	ID   int64
	Name string
}

// TimeSlot は有限枠のサブアクティビティ時間帯を表す
// 管理者が管理するもので、予約コアからは実質読み取り専用
type TimeSlot struct {
	ID         int64
	ActivityID int64
	Activity   *Activity
	Start      time.Time
	End        time.Time
	TotalSeats int
	Note       *string

	// AlwaysConsumeOnePerReservation が真の場合、予約の人数に関わらず
	// 1予約につき1枠だけを消費する
	AlwaysConsumeOnePerReservation bool
}

// ConsumedSeats は1予約がこのスロットから消費する枠数を返す
func (t *TimeSlot) ConsumedSeats(partySize int) int {
	if t.AlwaysConsumeOnePerReservation {
		return 1
	}
	return partySize
}

// ActivityName はアクティビティ名を返す（未ロード時は空文字）
func (t *TimeSlot) ActivityName() string {
	if t.Activity == nil {
		return ""
	}
	return t.Activity.Name
}

// View はメール・CSV・API向けの読み取り専用スロット表現
// 永続化されたエンティティとは別物で、合成表示用スロットもこの型で表す
type View struct {
	ID             int64     `json:"id"`
	ActivityID     int64     `json:"activity_id"`
	ActivityName   string    `json:"activity_name"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Note           *string   `json:"note,omitempty"`

	AlwaysConsumeOnePerReservation bool `json:"always_consume_one_per_reservation"`
}

// Available はスロットに空きがあるかを返す
func (v View) Available() bool {
	return v.AvailableSeats > 0
}

// ToView はエンティティから読み取り専用表現を作る
func (t *TimeSlot) ToView(availableSeats int) View {
	return View{
		ID:             t.ID,
		ActivityID:     t.ActivityID,
		ActivityName:   t.ActivityName(),
		Start:          t.Start,
		End:            t.End,
		TotalSeats:     t.TotalSeats,
		AvailableSeats: availableSeats,
		Note:           t.Note,

		AlwaysConsumeOnePerReservation: t.AlwaysConsumeOnePerReservation,
	}
}
