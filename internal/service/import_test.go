package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/importexport"
	"github.com/openimis/tools-module/internal/repository"
	"github.com/openimis/tools-module/internal/tabular"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestImportService(items *mockItemRepo, extracts *mockExtractRepo, tx *mockTx) *ImportService {
	svc := NewImportService(tx, importexport.NewItemResource(),
		ExtractConfig{Folder: "items", AppVersion: 1.5}, slog.Default())
	svc.items = func(repository.DBTX) repository.ItemRepository { return items }
	svc.extracts = func(repository.DBTX) repository.ExtractRepository { return extracts }
	svc.now = func() time.Time { return testNow }
	return svc
}

func csvDataset(t *testing.T, content string) *tabular.Dataset {
	t.Helper()
	ds, err := tabular.Decode(tabular.FormatCSV, strings.NewReader(content))
	if err != nil {
		t.Fatalf("Decode() ошибка: %v", err)
	}
	return ds
}

const header = "code,name,type,package,price,quantity,care_type,frequency,male_cat,female_cat,adult_cat,minor_cat,delete\n"

func existingItem(id int, code string) *model.Item {
	return &model.Item{
		ID: id, Code: code, Name: "Old", Type: "D", Package: "box", Price: 1,
		CareType: "B", PatientCategory: model.DecodePatientCategory(15),
		ValidityFrom: testNow.Add(-24 * time.Hour), AuditUserID: 1,
	}
}

func TestImport_NewItem(t *testing.T) {
	items := &mockItemRepo{}
	extracts := &mockExtractRepo{}
	tx := &mockTx{}
	svc := newTestImportService(items, extracts, tx)

	ds := csvDataset(t, header+"PA500,Paracetamol,D,box,12.50,,B,,1,0,1,0,\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{AuditUserID: 42, FileName: "items.csv"})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}

	if result.Totals[RowActionNew] != 1 || !result.Committed() {
		t.Fatalf("Totals = %v, Committed = %v", result.Totals, result.Committed())
	}
	if tx.commits != 1 {
		t.Errorf("commits = %d, ожидали 1", tx.commits)
	}

	got := items.items[0]
	if got.PatientCategory.Int() != 5 {
		t.Errorf("PatientCategory = %d, ожидали 5", got.PatientCategory.Int())
	}
	if got.AuditUserID != 42 {
		t.Errorf("AuditUserID = %d, ожидали 42", got.AuditUserID)
	}
	if !got.ValidityFrom.Equal(testNow) {
		t.Errorf("ValidityFrom = %v, ожидали %v", got.ValidityFrom, testNow)
	}
	if result.Rows[0].Line != 2 || result.Rows[0].ItemID != got.ID {
		t.Errorf("RowResult = %+v", result.Rows[0])
	}

	if len(extracts.created) != 1 {
		t.Fatalf("записей журнала %d, ожидали 1", len(extracts.created))
	}
	e := extracts.created[0]
	if e.Direction != model.ExtractDirectionImport || e.FileName != "items.csv" ||
		e.AuditUserID != 42 || e.Folder != "items" || e.AppVersion != 1.5 || e.Sequence != 1 {
		t.Errorf("Extract = %+v", e)
	}
	if result.Extract != e {
		t.Error("ImportResult.Extract не заполнен")
	}
}

func TestImport_UpdateSkipDelete(t *testing.T) {
	items := &mockItemRepo{items: []*model.Item{
		existingItem(1, "UPD"),
		existingItem(2, "SAME"),
		existingItem(3, "DEL"),
	}}
	extracts := &mockExtractRepo{}
	svc := newTestImportService(items, extracts, &mockTx{})

	ds := csvDataset(t, header+
		"UPD,New name,D,box,2.00,,B,,1,1,1,1,\n"+
		"SAME,Old,D,box,1,,B,,1,1,1,1,0\n"+
		"DEL,Old,D,box,1,,B,,1,1,1,1,1\n"+
		"NONE,Ghost,M,box,1,,B,,0,0,0,0,yes\n")

	result, err := svc.Import(context.Background(), ds, ImportOptions{AuditUserID: 7})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}

	want := []RowAction{RowActionUpdate, RowActionSkip, RowActionDelete, RowActionSkip}
	for i, rr := range result.Rows {
		if rr.Action != want[i] {
			t.Errorf("строка %d: Action = %s, ожидали %s (%s)", rr.Line, rr.Action, want[i], rr.Error)
		}
	}

	if len(items.updated) != 1 || items.updated[0] != 1 {
		t.Errorf("updated = %v, ожидали [1]", items.updated)
	}
	if len(items.closed) != 1 || items.closed[0] != 3 {
		t.Errorf("closed = %v, ожидали [3]", items.closed)
	}
	if items.items[0].Name != "New name" || items.items[0].AuditUserID != 7 {
		t.Errorf("обновлённая позиция = %+v", items.items[0])
	}
	if items.items[2].ValidityTo == nil || !items.items[2].ValidityTo.Equal(testNow) {
		t.Error("окно валидности удалённой позиции не закрыто текущим моментом")
	}
}

// TestImport_RowErrorRollsBack — одна ошибочная строка откатывает весь файл.
func TestImport_RowErrorRollsBack(t *testing.T) {
	items := &mockItemRepo{}
	extracts := &mockExtractRepo{}
	tx := &mockTx{}
	svc := newTestImportService(items, extracts, tx)

	ds := csvDataset(t, header+
		"A1,Good,D,box,1,,B,,0,0,0,0,\n"+
		"A2,Bad,X,box,1,,B,,0,0,0,0,\n")

	result, err := svc.Import(context.Background(), ds, ImportOptions{AuditUserID: 1})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}

	if !result.HasErrors() || result.Committed() {
		t.Fatalf("ожидали ошибки без сохранения: %+v", result.Totals)
	}
	if tx.rollbacks != 1 || tx.commits != 0 {
		t.Errorf("commits = %d, rollbacks = %d", tx.commits, tx.rollbacks)
	}
	bad := result.Rows[1]
	if bad.Action != RowActionError || bad.Error != "Invalid item type" || bad.Column != "type" || bad.Line != 3 {
		t.Errorf("RowResult = %+v", bad)
	}
	if len(extracts.created) != 0 {
		t.Error("при ошибках журнал выгрузок не пишется")
	}
}

func TestImport_DryRun(t *testing.T) {
	items := &mockItemRepo{}
	extracts := &mockExtractRepo{}
	tx := &mockTx{}
	svc := newTestImportService(items, extracts, tx)

	ds := csvDataset(t, header+"A1,Good,M,box,1,,B,,0,0,0,0,\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}

	if result.Totals[RowActionNew] != 1 {
		t.Errorf("Totals = %v", result.Totals)
	}
	if result.Committed() || tx.rollbacks != 1 {
		t.Error("dry run должен откатываться")
	}
	if result.Extract != nil || len(extracts.created) != 0 {
		t.Error("dry run не пишет журнал выгрузок")
	}
}

func TestImport_AmbiguousMatchIsRowError(t *testing.T) {
	items := &mockItemRepo{items: []*model.Item{existingItem(1, "DUP"), existingItem(2, "DUP")}}
	svc := newTestImportService(items, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, header+"DUP,x,D,box,1,,B,,0,0,0,0,\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	if result.Rows[0].Action != RowActionError {
		t.Errorf("Action = %s, ожидали error", result.Rows[0].Action)
	}
	if len(items.updated) != 0 {
		t.Error("при неоднозначном совпадении запись не должна выбираться")
	}
}

func TestImport_IgnoresClosedVersions(t *testing.T) {
	closed := testNow.Add(-time.Hour)
	old := existingItem(1, "HIST")
	old.ValidityTo = &closed
	items := &mockItemRepo{items: []*model.Item{old}}
	svc := newTestImportService(items, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, header+"HIST,Again,D,box,1,,B,,0,0,0,0,\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	if result.Rows[0].Action != RowActionNew {
		t.Errorf("Action = %s, ожидали new", result.Rows[0].Action)
	}
}

func TestImport_DatabaseErrorAborts(t *testing.T) {
	dbErr := errors.New("connection reset")
	items := &mockItemRepo{
		createFn: func(context.Context, *model.Item) error { return dbErr },
	}
	svc := newTestImportService(items, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, header+"A1,x,D,box,1,,B,,0,0,0,0,\n")
	_, err := svc.Import(context.Background(), ds, ImportOptions{})
	if !errors.Is(err, dbErr) {
		t.Fatalf("ожидали ошибку БД, получили %v", err)
	}
}

func TestImport_MissingColumns(t *testing.T) {
	svc := newTestImportService(&mockItemRepo{}, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, "name,price\nx,1\n")
	_, err := svc.Import(context.Background(), ds, ImportOptions{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if !strings.Contains(err.Error(), "code") || !strings.Contains(err.Error(), "type") {
		t.Errorf("ошибка %q должна перечислять столбцы", err.Error())
	}

	if _, err := svc.Import(context.Background(), nil, ImportOptions{}); !errors.Is(err, ErrValidation) {
		t.Errorf("nil dataset: ожидали ErrValidation, получили %v", err)
	}
}

// TestImport_DeleteFutureValidityTo — позиция с ValidityTo в будущем
// актуальна, поэтому delete=1 закрывает её окно текущим моментом.
func TestImport_DeleteFutureValidityTo(t *testing.T) {
	until := testNow.Add(24 * time.Hour)
	it := existingItem(1, "EXP")
	it.ValidityTo = &until
	items := &mockItemRepo{items: []*model.Item{it}}
	extracts := &mockExtractRepo{}
	svc := newTestImportService(items, extracts, &mockTx{})

	ds := csvDataset(t, header+"EXP,Old,D,box,1,,B,,1,1,1,1,1\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{AuditUserID: 3})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	if result.Rows[0].Action != RowActionDelete || !result.Committed() {
		t.Fatalf("RowResult = %+v, Committed = %v", result.Rows[0], result.Committed())
	}
	if items.items[0].ValidityTo == nil || !items.items[0].ValidityTo.Equal(testNow) {
		t.Errorf("ValidityTo = %v, ожидали %v", items.items[0].ValidityTo, testNow)
	}
	if len(extracts.created) != 1 {
		t.Errorf("записей журнала %d, ожидали 1", len(extracts.created))
	}
}

// TestImport_LineCountsBlankRows — номер строки в отчёте совпадает
// со строкой файла, даже если перед ней были пустые строки.
func TestImport_LineCountsBlankRows(t *testing.T) {
	svc := newTestImportService(&mockItemRepo{}, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, header+
		"A1,Good,D,box,1,,B,,0,0,0,0,\n"+
		",,,,,,,,,,,,\n"+
		"A2,Bad,X,box,1,,B,,0,0,0,0,\n"+
		"\n"+
		"A3,Bad,Z,box,1,,B,,0,0,0,0,\n")

	result, err := svc.Import(context.Background(), ds, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("строк %d, ожидали 3", len(result.Rows))
	}
	for i, want := range []int{2, 4, 6} {
		if result.Rows[i].Line != want {
			t.Errorf("Rows[%d].Line = %d, ожидали %d", i, result.Rows[i].Line, want)
		}
	}
	if result.Rows[1].Error != "Invalid item type" {
		t.Errorf("Rows[1].Error = %q", result.Rows[1].Error)
	}
}

// TestImport_ColumnLimitsAreRowErrors — значения, которые не поместятся
// в столбцы tblItems, отклоняются построчно и до записи в базу.
func TestImport_ColumnLimitsAreRowErrors(t *testing.T) {
	createFn := func(context.Context, *model.Item) error {
		return errors.New("value too long for type character varying(6)")
	}
	items := &mockItemRepo{createFn: createFn}
	tx := &mockTx{}
	svc := newTestImportService(items, &mockExtractRepo{}, tx)

	ds := csvDataset(t, header+
		"TOOLONG,x,D,box,1,,B,,0,0,0,0,\n"+
		"F1,x,D,box,1,,B,70000,0,0,0,0,\n"+
		"C1,x,D,box,1,,X,,0,0,0,0,\n"+
		"P1,x,D,box,12345678901234567,,B,,0,0,0,0,\n")

	result, err := svc.Import(context.Background(), ds, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	wantColumns := []string{"code", "frequency", "care_type", "price"}
	for i, rr := range result.Rows {
		if rr.Action != RowActionError || rr.Column != wantColumns[i] {
			t.Errorf("строка %d: Action = %s, Column = %q; ожидали error, %q", rr.Line, rr.Action, rr.Column, wantColumns[i])
		}
	}
	if result.Committed() || tx.rollbacks != 1 {
		t.Error("импорт с ошибками должен откатываться")
	}
}

// TestImport_PriceRoundedBeforeCompare — цена с тремя знаками после
// запятой совпадает с сохранённой numeric(18,2) и не даёт обновления.
func TestImport_PriceRoundedBeforeCompare(t *testing.T) {
	it := existingItem(1, "RND")
	it.Price = 12.35
	items := &mockItemRepo{items: []*model.Item{it}}
	svc := newTestImportService(items, &mockExtractRepo{}, &mockTx{})

	ds := csvDataset(t, header+"RND,Old,D,box,12.345,,B,,1,1,1,1,\n")
	result, err := svc.Import(context.Background(), ds, ImportOptions{})
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	if result.Rows[0].Action != RowActionSkip {
		t.Errorf("Action = %s, ожидали skip", result.Rows[0].Action)
	}
	if len(items.updated) != 0 {
		t.Errorf("updated = %v, ожидали пусто", items.updated)
	}
}
