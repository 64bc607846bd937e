package reports

import (
	"fmt"

	"github.com/coverlane/agency_backend/models"
	"github.com/xuri/excelize/v2"
)

type quoteRow struct {
	Carrier       string
	Status        string
	TaskId        string
	AccountNumber string
	PolicyCode    string
	QuoteURL      string
	Error         string
}

func taskRows(tasks models.RpaTaskMap, carrierOrder []string) []quoteRow {
	rows := make([]quoteRow, 0, len(tasks))
	for _, carrier := range carrierOrder {
		task, ok := tasks[carrier]
		if !ok || task == nil {
			continue
		}
		row := quoteRow{
			Carrier: carrier,
			Status:  string(task.Status),
			TaskId:  task.TaskId,
			Error:   task.Error,
		}
		if task.Result != nil {
			row.AccountNumber = stringResult(task.Result, "account_number")
			row.PolicyCode = stringResult(task.Result, "policy_code")
			row.QuoteURL = stringResult(task.Result, "quote_url")
		}
		rows = append(rows, row)
	}
	return rows
}

func stringResult(result map[string]interface{}, key string) string {
	if v, ok := result[key].(string); ok {
		return v
	}
	return ""
}

// BuildQuoteSheet renders the per-carrier quote results of one submission
// as an xlsx workbook.
func BuildQuoteSheet(sub *models.Submission, carrierOrder []string) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "Business")
	f.SetCellValue(sheetName, "B1", "Carrier")
	f.SetCellValue(sheetName, "C1", "Status")
	f.SetCellValue(sheetName, "D1", "TaskId")
	f.SetCellValue(sheetName, "E1", "AccountNumber")
	f.SetCellValue(sheetName, "F1", "PolicyCode")
	f.SetCellValue(sheetName, "G1", "QuoteUrl")
	f.SetCellValue(sheetName, "H1", "Error")

	// Add data
	for i, row := range taskRows(sub.RpaTasks(), carrierOrder) {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+2), sub.BusinessName)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+2), row.Carrier)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+2), row.Status)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(i+2), row.TaskId)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(i+2), row.AccountNumber)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(i+2), row.PolicyCode)
		f.SetCellValue(sheetName, "G"+fmt.Sprint(i+2), row.QuoteURL)
		f.SetCellValue(sheetName, "H"+fmt.Sprint(i+2), row.Error)
	}

	return f, nil
}
