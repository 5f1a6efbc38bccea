package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

// CsvExporter は確定済み予約一覧をセミコロン区切りのCSVに整形する
type CsvExporter struct {
	resRepo  reservation.Repository
	slotRepo timeslot.Repository

	// exportActivityIDs はスロット時刻列を出力するアクティビティのID列
	exportActivityIDs []int64
	location          *time.Location
}

// NewCsvExporter は新しい CsvExporter を作成する
// timezone が不正な場合はUTCで出力する
func NewCsvExporter(rr reservation.Repository, sr timeslot.Repository, exportActivityIDs []int64, timezone string) *CsvExporter {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &CsvExporter{
		resRepo:  rr,
		slotRepo: sr,

		exportActivityIDs: exportActivityIDs,
		location:          loc,
	}
}

// ExportConfirmedReservationsCsv は確定済みかつ未キャンセルの予約を1行ずつ出力する
// 形式: email;seats;sleepover;pubquiz_team;pubquiz_size;<アクティビティ別スロット時刻>...
func (e *CsvExporter) ExportConfirmedReservationsCsv(ctx context.Context) (string, error) {
	slots, err := e.slotRepo.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("スロット一覧の取得に失敗: %w", err)
	}
	slotsByID := make(map[int64]*timeslot.TimeSlot, len(slots))
	for _, slot := range slots {
		slotsByID[slot.ID] = slot
	}

	reservations, err := e.resRepo.ListConfirmed(ctx)
	if err != nil {
		return "", fmt.Errorf("確定済み予約の取得に失敗: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("email;seats;sleepover;pubquiz_team;pubquiz_size")
	for _, activityID := range e.exportActivityIDs {
		sb.WriteString(";")
		sb.WriteString(e.activityColumnName(slots, activityID))
	}
	sb.WriteString("\n")

	for _, res := range reservations {
		teamName := "-"
		if res.PubQuizTeamName != nil {
			// セミコロンは区切り文字なので潰す
			teamName = strings.ReplaceAll(*res.PubQuizTeamName, ";", "-")
		}

		sb.WriteString(res.Email)
		sb.WriteString(";")
		sb.WriteString(strconv.Itoa(res.Seats))
		sb.WriteString(";")
		sb.WriteString(strconv.FormatBool(res.SleepOver))
		sb.WriteString(";")
		sb.WriteString(teamName)
		sb.WriteString(";")
		sb.WriteString(strconv.Itoa(res.PubQuizSeats))

		for _, activityID := range e.exportActivityIDs {
			sb.WriteString(";")
			sb.WriteString(e.slotTimeForActivity(res, slotsByID, activityID))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// slotTimeForActivity は予約が消費した指定アクティビティのスロット時刻を返す
// 消費していない場合は "-" を返す
func (e *CsvExporter) slotTimeForActivity(res *reservation.Reservation, slotsByID map[int64]*timeslot.TimeSlot, activityID int64) string {
	for _, claim := range res.SlotClaims {
		slot, ok := slotsByID[claim.TimeSlotID]
		if !ok || slot.ActivityID != activityID {
			continue
		}
		return fmt.Sprintf("%s–%s",
			slot.Start.In(e.location).Format("15:04"),
			slot.End.In(e.location).Format("15:04"))
	}
	return "-"
}

// activityColumnName はヘッダー行のアクティビティ列名を返す
func (e *CsvExporter) activityColumnName(slots []*timeslot.TimeSlot, activityID int64) string {
	for _, slot := range slots {
		if slot.ActivityID == activityID && slot.Activity != nil {
			return strings.ReplaceAll(strings.ToLower(slot.Activity.Name), " ", "_")
		}
	}
	return fmt.Sprintf("activity_%d", activityID)
}
