package metrics

import "testing"

func TestRecordTransfer(t *testing.T) {
	before := TotalBytesMoved()

	RecordTransfer(true, 100)
	RecordTransfer(false, 50)

	if got := TotalBytesMoved(); got != before+150 {
		t.Errorf("total bytes moved = %v, want %v", got, before+150)
	}
}

func TestGaugesAndCountersDoNotPanic(t *testing.T) {
	RecordDeviceMemory(1024)
	RecordDeviceMemory(0)
	RecordHostMemory(2048)
	RecordHostMemory(0)
	RecordCellAllocation(64)
	RecordEncoded(256)
	RecordDecoded()
}
