package controllers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibill-backend/models"
)

func postCSV(t *testing.T, router *gin.Engine, token, targetTable, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("target_table", targetTable))
	part, err := writer.CreateFormFile("csv_file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportRejectsFileWithWrongHeaders(t *testing.T) {
	db, router := setupApp(t)
	admin := seedAppUser(t, db, "admin1", models.RoleAdmin)

	// "price_staff" missing, "cost" unexpected. The whole file must be
	// rejected with zero rows applied.
	csvBody := "item_code,name_th,price_opd,price_ipd,price_foreign_opd,price_foreign_ipd,cost\n" +
		"MED-001,Paracetamol,150.00,180.00,200.00,230.00,90.00\n"
	w := postCSV(t, router, tokenFor(t, admin), "items", "items.csv", csvBody)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	msg, _ := decodeBody(t, w)["error"].(string)
	assert.Contains(t, msg, "price_staff")
	assert.Contains(t, msg, "cost")

	var count int64
	require.NoError(t, db.Model(&models.Item{}).Count(&count).Error)
	assert.Zero(t, count, "no rows may land from a rejected file")
}

func TestImportCreatesAndUpdatesRows(t *testing.T) {
	db, router := setupApp(t)
	admin := seedAppUser(t, db, "admin1", models.RoleAdmin)
	require.NoError(t, db.Create(&models.Staff{StaffID: "DOC-1", NameTH: "Old Name", StaffRole: "doctor"}).Error)

	csvBody := "staff_id,name_th,name_en,staff_role\n" +
		"DOC-1,Dr. Somchai,Somchai,doctor\n" +
		"CON-1,Khun Malee,Malee,consultant\n" +
		",Should Be Skipped,Nobody,doctor\n"
	w := postCSV(t, router, tokenFor(t, admin), "staff", "staff.csv", csvBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["added"])
	assert.EqualValues(t, 1, body["updated"])

	var updated models.Staff
	require.NoError(t, db.First(&updated, "staff_id = ?", "DOC-1").Error)
	assert.Equal(t, "Dr. Somchai", updated.NameTH)

	var count int64
	require.NoError(t, db.Model(&models.Staff{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "PK-less row is skipped")

	var entry models.LogEntry
	require.NoError(t, db.Order("log_id DESC").First(&entry).Error)
	assert.Contains(t, entry.Action, "staff")
}

func TestImportAcceptsByteOrderMarkedHeader(t *testing.T) {
	db, router := setupApp(t)
	admin := seedAppUser(t, db, "admin1", models.RoleAdmin)

	// Spreadsheet exports routinely prefix the first header cell with a BOM.
	csvBody := "\ufeffstaff_id,name_th,name_en,staff_role\n" +
		"DOC-1,Dr. Somchai,Somchai,doctor\n"
	w := postCSV(t, router, tokenFor(t, admin), "staff", "staff.csv", csvBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, w)["added"])

	var member models.Staff
	require.NoError(t, db.First(&member, "staff_id = ?", "DOC-1").Error)
	assert.Equal(t, "Dr. Somchai", member.NameTH)
}

func TestImportRequiresPrivilegedRole(t *testing.T) {
	db, router := setupApp(t)
	user := seedAppUser(t, db, "clerk", models.RoleUser)

	csvBody := "staff_id,name_th,name_en,staff_role\nDOC-1,Dr. Somchai,Somchai,doctor\n"
	w := postCSV(t, router, tokenFor(t, user), "staff", "staff.csv", csvBody)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Staff{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportRejectsUnknownTableAndNonCSVFile(t *testing.T) {
	db, router := setupApp(t)
	admin := seedAppUser(t, db, "admin1", models.RoleAdmin)
	token := tokenFor(t, admin)

	w := postCSV(t, router, token, "users", "users.csv", "username\nx\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCSV(t, router, token, "staff", "staff.xlsx", "staff_id,name_th,name_en,staff_role\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadTemplateServesHeaderRow(t *testing.T) {
	db, router := setupApp(t)
	admin := seedAppUser(t, db, "admin1", models.RoleAdmin)

	w := doJSON(t, router, http.MethodGet, "/api/import/template/items", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "item_code,name_th,price_opd,price_ipd,price_foreign_opd,price_foreign_ipd,price_staff\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "template_items.csv")
}
