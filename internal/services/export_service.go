package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/codeschool/accounts/internal/models"
	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Users"

var rosterHeader = []interface{}{
	"ID", "Email", "Name", "Alias", "School ID", "Role", "Staff", "Superuser", "Active", "Date joined", "Last login",
}

// ExportService renders the user directory as a spreadsheet.
type ExportService struct {
	accounts *AccountService
}

func NewExportService(accounts *AccountService) *ExportService {
	return &ExportService{accounts: accounts}
}

// Roster writes every user matching f into an xlsx workbook, paging through
// the directory.
func (s *ExportService) Roster(ctx context.Context, f ListFilter) ([]byte, error) {
	var users []models.User
	f.Limit = 100
	for f.Offset = 0; ; f.Offset += f.Limit {
		page, err := s.accounts.list(ctx, f)
		if err != nil {
			return nil, err
		}
		users = append(users, page.Users...)
		if len(page.Users) < f.Limit {
			break
		}
	}
	return RosterWorkbook(users)
}

func RosterWorkbook(users []models.User) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rosterHeader))
	if err := f.SetCellStyle(rosterSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, u := range users {
		lastLogin := ""
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			u.ID.String(),
			u.Email,
			u.FullName(),
			u.Alias,
			u.SchoolCode(),
			u.Role.String(),
			u.IsStaff,
			u.IsSuperuser,
			u.IsActive,
			u.DateJoined.UTC().Format(time.RFC3339),
			lastLogin,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
