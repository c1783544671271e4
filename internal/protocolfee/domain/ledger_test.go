package domain

import (
	"errors"
	"math"
	"testing"
)

func TestFeeLedger_AccrueAndBalance(t *testing.T) {
	ledger := NewFeeLedger(nil)

	balance, err := ledger.Accrue("assetA", 100)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected balance 100, got %d", balance)
	}

	balance, err = ledger.Accrue("assetA", 50)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if balance != 150 {
		t.Fatalf("expected balance 150, got %d", balance)
	}

	if ledger.Balance("assetB") != 0 {
		t.Fatal("expected untouched asset to have zero balance")
	}
}

func TestFeeLedger_AccrueOverflowFails(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": math.MaxUint64 - 10})

	_, err := ledger.Accrue("assetA", 11)
	if !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if ledger.Balance("assetA") != math.MaxUint64-10 {
		t.Fatal("expected balance to be unchanged after overflow")
	}
}

func TestFeeLedger_CollectZeroTakesFullBalance(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": 100})

	collected, remaining, err := ledger.Collect("assetA", 0)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected != 100 {
		t.Fatalf("expected collected 100, got %d", collected)
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}
	if ledger.Balance("assetA") != 0 {
		t.Fatal("expected balance to be zero after full collect")
	}
}

func TestFeeLedger_CollectMoreThanAccruedFails(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": 100})

	_, _, err := ledger.Collect("assetA", 150)
	if !errors.Is(err, ErrInsufficientAccrued) {
		t.Fatalf("expected ErrInsufficientAccrued, got %v", err)
	}
	if ledger.Balance("assetA") != 100 {
		t.Fatalf("expected balance unchanged at 100, got %d", ledger.Balance("assetA"))
	}
}

// 任意 accrue/collect 序列下，已提取总额加余额恒等于入账总额，余额绝不为负。
func TestFeeLedger_ConservationInvariant(t *testing.T) {
	ledger := NewFeeLedger(nil)
	asset := AssetID("assetA")

	var accrued, collected uint64
	steps := []struct {
		accrue  uint64
		collect uint64
	}{
		{accrue: 100},
		{collect: 40},
		{accrue: 25},
		{collect: 0}, // 全额提取
		{accrue: 7},
		{collect: 3},
		{collect: 4},
	}

	for i, step := range steps {
		if step.accrue > 0 {
			if _, err := ledger.Accrue(asset, step.accrue); err != nil {
				t.Fatalf("step %d accrue: %v", i, err)
			}
			accrued += step.accrue
		} else {
			got, _, err := ledger.Collect(asset, step.collect)
			if err != nil {
				t.Fatalf("step %d collect: %v", i, err)
			}
			collected += got
		}

		if collected+ledger.Balance(asset) != accrued {
			t.Fatalf("step %d: conservation broken: collected %d + balance %d != accrued %d",
				i, collected, ledger.Balance(asset), accrued)
		}
	}
}

func TestFeeLedger_DeductExactAmount(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": 100})

	if err := ledger.Deduct("assetA", 40); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if ledger.Balance("assetA") != 60 {
		t.Fatalf("expected balance 60 after deduct, got %d", ledger.Balance("assetA"))
	}

	if err := ledger.Deduct("assetA", 61); !errors.Is(err, ErrInsufficientAccrued) {
		t.Fatalf("expected ErrInsufficientAccrued, got %v", err)
	}
	if ledger.Balance("assetA") != 60 {
		t.Fatalf("expected balance unchanged at 60, got %d", ledger.Balance("assetA"))
	}
}

// Deduct 与 Collect 不同，金额为 0 不具有全额语义
func TestFeeLedger_DeductZeroIsNoop(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": 100})

	if err := ledger.Deduct("assetA", 0); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if ledger.Balance("assetA") != 100 {
		t.Fatalf("expected balance unchanged at 100, got %d", ledger.Balance("assetA"))
	}
}

func TestFeeLedger_RestoreAfterFailedTransfer(t *testing.T) {
	ledger := NewFeeLedger(map[AssetID]uint64{"assetA": 100})

	collected, _, err := ledger.Collect("assetA", 60)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if _, err := ledger.Restore("assetA", collected); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if ledger.Balance("assetA") != 100 {
		t.Fatalf("expected balance restored to 100, got %d", ledger.Balance("assetA"))
	}
}

func TestControllerRegistry_SetAndClear(t *testing.T) {
	registry := NewControllerRegistry("")

	if _, ok := registry.Current(); ok {
		t.Fatal("expected controller to be unset at construction")
	}

	registry.Set("0xcontroller")
	current, ok := registry.Current()
	if !ok || current != "0xcontroller" {
		t.Fatalf("expected controller 0xcontroller, got %q (ok=%v)", current, ok)
	}
	if !registry.Is("0xcontroller") {
		t.Fatal("expected Is to match the stored controller")
	}

	registry.Set("")
	if _, ok := registry.Current(); ok {
		t.Fatal("expected controller to be cleared")
	}
	if registry.Is("") {
		t.Fatal("expected empty address to never match")
	}
}
