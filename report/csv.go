/*
Package report renders a computed month as the CSV workbook employees open in
a spreadsheet.

LAYOUT:
  UTF-8 byte order mark
  daily table   (13 columns, one row per punched date)
  two blank lines
  summary table (汇总项目, 信息)

Hours, money and minutes are printed with two decimals, rates as integers.
*/
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// BOM makes spreadsheet applications read the file as UTF-8.
const BOM = "\uFEFF"

// DailyRow is one line of the daily table.
type DailyRow struct {
	Date           string `csv:"日期"`
	FirstCheck     string `csv:"最早打卡时间"`
	LastCheck      string `csv:"最晚打卡时间"`
	DayType        string `csv:"本日性质"`
	Rate           string `csv:"加班时薪"`
	Overtime       string `csv:"加班时长"`
	OvertimePay    string `csv:"加班薪资"`
	Allowance      string `csv:"延时餐补"`
	Income         string `csv:"总收入"`
	LateMinutes    string `csv:"迟到分钟数"`
	DeductionHours string `csv:"延时工时扣减时间"`
	AnnualLeave    string `csv:"年假时间"`
	PersonalLeave  string `csv:"事假时间"`
}

// Rows converts reconciled rows to their printed form. Check times are printed
// without the remote marker.
func Rows(rows []overtime.DailyRow) []DailyRow {
	out := make([]DailyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyRow{
			Date:           r.Date.String(),
			FirstCheck:     r.FirstCheck.Clock.String(),
			LastCheck:      r.LastCheck.Clock.String(),
			DayType:        string(r.DayType),
			Rate:           r.Rate.String(),
			Overtime:       r.Overtime.Fixed(2),
			OvertimePay:    r.OvertimePay.Fixed(2),
			Allowance:      r.Allowance.Fixed(2),
			Income:         r.Income.Fixed(2),
			LateMinutes:    r.LateMinutes.Fixed(2),
			DeductionHours: r.DeductionHours.Fixed(2),
			AnnualLeave:    r.AnnualLeaveHours.Fixed(2),
			PersonalLeave:  r.PersonalLeaveHours.Fixed(2),
		})
	}
	return out
}

// Write renders the whole workbook.
func Write(w io.Writer, res *overtime.Result) error {
	if res == nil || res.Summary == nil {
		return fmt.Errorf("report: nothing to write")
	}
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	if err := gocsv.Marshal(Rows(res.Rows), w); err != nil {
		return fmt.Errorf("write daily table: %w", err)
	}
	if _, err := io.WriteString(w, "\n\n"); err != nil {
		return err
	}
	if err := gocsv.Marshal(res.Lines, w); err != nil {
		return fmt.Errorf("write summary table: %w", err)
	}
	return nil
}

// Bytes renders the workbook into memory.
func Bytes(res *overtime.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName is the conventional file name of a month's report.
func FileName(period generic.Period) string {
	return fmt.Sprintf("%d年%02d月加班情况详细分析报表.csv", period.Year(), int(period.Month()))
}
