package timeslot

import "errors"

// TimeSlot ドメインのエラー定義
var ErrTimeSlotNotFound = errors.New("タイムスロットが見つかりません")
