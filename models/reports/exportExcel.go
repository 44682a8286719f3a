package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func WriteOccurrenceScheduleExcel(w io.Writer, data []*OccurrenceScheduleRow) error {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "Bill")
	f.SetCellValue(sheetName, "B1", "Type")
	f.SetCellValue(sheetName, "C1", "DueDate")
	f.SetCellValue(sheetName, "D1", "Amount")
	f.SetCellValue(sheetName, "E1", "Status")
	f.SetCellValue(sheetName, "F1", "PaidAmount")
	f.SetCellValue(sheetName, "G1", "PaidDate")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.BillName)
		f.SetCellValue(sheetName, "B"+row, string(d.BillType))
		f.SetCellValue(sheetName, "C"+row, d.DueDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "D"+row, d.Amount.InexactFloat64())
		f.SetCellValue(sheetName, "E"+row, d.Status)
		if d.PaidAmount != nil {
			f.SetCellValue(sheetName, "F"+row, d.PaidAmount.InexactFloat64())
		}
		if d.PaidDate != nil {
			f.SetCellValue(sheetName, "G"+row, d.PaidDate.Format("2006-01-02"))
		}
	}

	return f.Write(w)
}
