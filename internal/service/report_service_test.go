package service

import (
	"testing"

	"go-pos-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportFixture(t *testing.T) ReportService {
	t.Helper()
	w, _ := newPosWorkspace(t, commissionState())
	sellCashAndCredit(t, w)
	return NewReportService(w)
}

var march15 = ReportQuery{Start: "2024-03-15", End: "2024-03-15"}

func TestReportService_SellerIsScopedToOwnSales(t *testing.T) {
	reports := newReportFixture(t)

	q := march15
	q.SellerID = adminID.String()
	rep, err := reports.Summary(sellerActor, q)
	require.NoError(t, err)
	assert.Equal(t, sellerID.String(), rep.SellerID)
	assert.Equal(t, "somsri", rep.SellerName)
	assert.False(t, rep.ShowOverview)
	require.Len(t, rep.Result.Sellers, 1)

	rows := rep.Table().Rows()
	assert.Equal(t, []string{"สรุปโดย :", "somsri"}, rows[0])
	assert.Equal(t, []string{"สรุปภาพรวม: somsri:", "15/03/67"}, rows[2])
	assert.Contains(t, rows, []string{"--- สรุปยอดขาย: somsri ---"})
	assert.Contains(t, rows, []string{"ยอดขายรวม (บาท)", "150"})
	assert.Contains(t, rows, []string{"คอมมิชชั่น (10% จาก เงินสด) (บาท)", "10"})
	assert.Contains(t, rows, []string{"น้ำ", "10 ขวด", "0 ขวด", "5 ขวด", "15 ขวด", "150", "85 ขวด"})
	assert.NotContains(t, rows, []string{"--- ภาพรวมทั้งหมด ---"})
}

func TestReportService_AdminOverview(t *testing.T) {
	reports := newReportFixture(t)

	rep, err := reports.Summary(adminActor, march15)
	require.NoError(t, err)
	assert.Equal(t, "all", rep.SellerID)
	assert.Equal(t, "ผู้ขายทั้งหมด", rep.SellerName)
	assert.True(t, rep.ShowOverview)

	rows := rep.Table().Rows()
	assert.Contains(t, rows, []string{"--- ภาพรวมทั้งหมด ---"})
	assert.Contains(t, rows, []string{"ยอดเครดิต (บาท)", "50"})
	assert.Contains(t, rows, []string{"กำไรรวม (บาท)", "75"})
	assert.Contains(t, rep.FileName(), "POS_Summary_Aggregated_all_")
}

func TestReportService_DetailedCommissionBlock(t *testing.T) {
	reports := newReportFixture(t)

	rep, err := reports.Detailed(sellerActor, march15)
	require.NoError(t, err)
	assert.False(t, rep.IncludeProfit)
	require.NotNil(t, rep.Commission)
	assert.True(t, dec("150").Equal(rep.TotalSales))

	rows := rep.Table().Rows()
	assert.Equal(t, []string{"รายงานการขายของ somsri"}, rows[0])
	assert.NotContains(t, rows[4], "กำไรรวม (บาท)")
	assert.Contains(t, rows, []string{"", "", "", "", "", "ยอดรวมทั้งหมด", "150"})
	assert.Contains(t, rows, []string{"คำนวณค่าคอมมิชชั่น (10%)"})
	assert.Contains(t, rows, []string{"", "", "", "", "", "ยอดขายเงินสด: 100 บาท", "ค่าคอมฯ: 10 บาท"})
	assert.Contains(t, rows, []string{"", "", "", "", "", "รวมค่าคอมมิชชั่นทั้งหมด", "10"})

	admin, err := reports.Detailed(adminActor, march15)
	require.NoError(t, err)
	assert.True(t, admin.IncludeProfit)
	assert.Nil(t, admin.Commission, "no commission block across all sellers")
	assert.Contains(t, admin.Table().Rows()[4], "กำไรรวม (บาท)")
}

func TestReportService_CreditList(t *testing.T) {
	reports := newReportFixture(t)

	rep, err := reports.Credit(sellerActor, march15)
	require.NoError(t, err)
	rows := rep.Table().Rows()
	assert.Contains(t, rows, []string{"วันที่", "ผู้ซื้อ", "ผู้ขาย", "รายการสินค้า", "ยอดเงิน (บาท)", "กำหนดชำระ"})
	assert.Contains(t, rows, []string{"15/03/67", "X", "somsri", "น้ำ(5 ขวด)", "50", "22/03/67"})
	assert.Equal(t, []string{"", "", "", "", "ยอดรวมลูกหนี้ทั้งหมด (บาท)", "50"}, rows[len(rows)-1])
	assert.Contains(t, rep.FileName(), "Credit_Summary_u-somsri_")

	_, err = reports.Transfer(sellerActor, march15)
	assert.ErrorIs(t, err, ErrNoMatchingRecords)
}

func TestReportService_History(t *testing.T) {
	reports := newReportFixture(t)

	_, err := reports.History(sellerActor, march15)
	assert.ErrorIs(t, err, ErrForbidden)

	rep, err := reports.History(adminActor, march15)
	require.NoError(t, err)
	require.Len(t, rep.Sales, 2)
	assert.Equal(t, "Sales_History_2024-03-15_to_2024-03-15.csv", rep.FileName())

	rows := rep.Table().Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "ประเภทชำระ", rows[0][8])
	methods := []string{rows[1][8], rows[2][8]}
	assert.ElementsMatch(t, []string{string(model.PaymentCash), string(model.PaymentCredit)}, methods)
}

func TestReportService_QueryValidation(t *testing.T) {
	reports := newReportFixture(t)

	_, err := reports.Summary(adminActor, ReportQuery{Start: "2024-03-16", End: "2024-03-15"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = reports.Summary(adminActor, ReportQuery{Start: "15/03/2024", End: "2024-03-15"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reports.Summary(adminActor, ReportQuery{Start: "2024-03-15", End: "2024-03-15", Payment: "cheque"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reports.Summary(adminActor, ReportQuery{Start: "2024-03-01", End: "2024-03-14"})
	assert.ErrorIs(t, err, ErrNoMatchingRecords)

	q := march15
	q.Payment = string(model.PaymentTransfer)
	_, err = reports.Detailed(adminActor, q)
	assert.ErrorIs(t, err, ErrNoMatchingRecords)
}
