// controllers/import.go
package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

// importSpec pins the exact header set a CSV must carry for one target table.
type importSpec struct {
	Headers []string
	PKField string
	Upsert  func(tx *gorm.DB, row map[string]string) (created bool, err error)
}

var importSpecs = map[string]importSpec{
	"staff": {
		Headers: []string{"staff_id", "name_th", "name_en", "staff_role"},
		PKField: "staff_id",
		Upsert:  upsertStaffRow,
	},
	"items": {
		Headers: []string{"item_code", "name_th", "price_opd", "price_ipd", "price_foreign_opd", "price_foreign_ipd", "price_staff"},
		PKField: "item_code",
		Upsert:  upsertItemRow,
	},
}

// ImportCSV bulk-loads staff or item reference data. The header set must
// match exactly; otherwise the whole file is rejected with zero rows applied.
// Rows upsert by primary key inside one unit of work.
func ImportCSV(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !models.IsPrivileged(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "Permission Denied.")
		return
	}

	targetTable := c.PostForm("target_table")
	spec, ok := importSpecs[targetTable]
	if !ok {
		utils.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid target table selected: %s", targetTable))
		return
	}

	fileHeader, err := c.FormFile("csv_file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No file selected for upload.")
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid file type. Please upload a .csv file.")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Failed to read uploaded file.")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rawHeaders, err := reader.Read()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Failed to parse CSV file.")
		return
	}
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	if msg := headerMismatch(headers, spec.Headers); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	var added, updated int
	tx := config.DB.Begin()
	rowNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			tx.Rollback()
			utils.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse CSV row %d.", rowNum+1))
			return
		}
		rowNum++

		row := map[string]string{}
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			}
		}
		if row[spec.PKField] == "" {
			// No primary key, nothing to upsert against.
			continue
		}

		created, err := spec.Upsert(tx, row)
		if err != nil {
			tx.Rollback()
			respondServiceError(c, err)
			return
		}
		if created {
			added++
		} else {
			updated++
		}
	}

	userID := user.UserID
	action := fmt.Sprintf("Imported CSV into table '%s': %d added, %d updated.", targetTable, added, updated)
	if err := services.AddLogEntry(tx, &userID, action); err != nil {
		tx.Rollback()
		respondServiceError(c, services.Storagef(err, "write audit entry"))
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondServiceError(c, services.Storagef(err, "commit import"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Import completed: %d records added, %d records updated in \"%s\" table!", added, updated, targetTable),
		"added":   added,
		"updated": updated,
	})
}

func headerMismatch(got, expected []string) string {
	gotSet := map[string]bool{}
	for _, h := range got {
		gotSet[h] = true
	}
	expectedSet := map[string]bool{}
	for _, h := range expected {
		expectedSet[h] = true
	}

	var missing, extra []string
	for h := range expectedSet {
		if !gotSet[h] {
			missing = append(missing, h)
		}
	}
	for h := range gotSet {
		if !expectedSet[h] {
			extra = append(extra, h)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return ""
	}
	sort.Strings(missing)
	sort.Strings(extra)

	msg := "CSV headers do not match. "
	if len(missing) > 0 {
		msg += "Missing: " + strings.Join(missing, ", ") + ". "
	}
	if len(extra) > 0 {
		msg += "Extra: " + strings.Join(extra, ", ") + "."
	}
	return strings.TrimSpace(msg)
}

func upsertStaffRow(tx *gorm.DB, row map[string]string) (bool, error) {
	id := row["staff_id"]
	var member models.Staff
	err := tx.First(&member, "staff_id = ?", id).Error
	switch {
	case err == nil:
		member.NameTH = row["name_th"]
		member.NameEN = row["name_en"]
		member.StaffRole = row["staff_role"]
		if err := tx.Save(&member).Error; err != nil {
			return false, services.Storagef(err, "update staff row")
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = models.Staff{
			StaffID:   id,
			NameTH:    row["name_th"],
			NameEN:    row["name_en"],
			StaffRole: row["staff_role"],
		}
		if err := tx.Create(&member).Error; err != nil {
			return false, services.Storagef(err, "create staff row")
		}
		return true, nil
	default:
		return false, services.Storagef(err, "load staff row")
	}
}

func upsertItemRow(tx *gorm.DB, row map[string]string) (bool, error) {
	id := row["item_code"]
	var item models.Item
	err := tx.First(&item, "item_code = ?", id).Error
	switch {
	case err == nil:
		item.NameTH = row["name_th"]
		applyItemPrices(&item, row)
		if err := tx.Save(&item).Error; err != nil {
			return false, services.Storagef(err, "update item row")
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.Item{ItemCode: id, NameTH: row["name_th"]}
		applyItemPrices(&item, row)
		if err := tx.Create(&item).Error; err != nil {
			return false, services.Storagef(err, "create item row")
		}
		return true, nil
	default:
		return false, services.Storagef(err, "load item row")
	}
}

func applyItemPrices(item *models.Item, row map[string]string) {
	item.PriceOPD = parsePrice(row["price_opd"])
	item.PriceIPD = parsePrice(row["price_ipd"])
	item.PriceForeignOPD = parsePrice(row["price_foreign_opd"])
	item.PriceForeignIPD = parsePrice(row["price_foreign_ipd"])
	item.PriceStaff = parsePrice(row["price_staff"])
}

// parsePrice coerces unparseable price cells to zero rather than failing the
// whole file over one bad cell.
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DownloadTemplate serves the expected header row for a target table.
func DownloadTemplate(c *gin.Context) {
	spec, ok := importSpecs[c.Param("table")]
	if !ok {
		utils.RespondWithError(c, http.StatusNotFound, "Invalid table")
		return
	}

	headerRow := strings.Join(spec.Headers, ",")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=template_%s.csv", c.Param("table")))
	c.Data(http.StatusOK, "text/csv", []byte(headerRow+"\n"))
}
