package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var totalBytesMoved atomic.Int64

var (
	HostToDeviceCopies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_host_to_device_copies_total",
		Help: "Lazy host-to-device synchronizations performed by storage cells",
	})

	DeviceToHostCopies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_device_to_host_copies_total",
		Help: "Lazy device-to-host synchronizations performed by storage cells",
	})

	HostToDeviceBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_host_to_device_bytes_total",
		Help: "Bytes moved from host to device memory",
	})

	DeviceToHostBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_device_to_host_bytes_total",
		Help: "Bytes moved from device to host memory",
	})

	DeviceMemoryAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tensor_device_memory_allocated_bytes",
		Help: "Current bytes allocated on the device",
	})

	HostMemoryAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tensor_host_memory_allocated_bytes",
		Help: "Current bytes allocated in host cells",
	})

	CellAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_cell_allocations_total",
		Help: "Storage cell allocations, including capacity-growth replacements",
	})

	CellByteSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tensor_cell_byte_size",
		Help:    "Distribution of storage cell allocation sizes in bytes",
		Buckets: []float64{64, 1024, 16384, 262144, 4194304, 67108864, 1073741824},
	})

	RecordsEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_records_encoded_total",
		Help: "Persisted tensor records written",
	})

	RecordsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_records_decoded_total",
		Help: "Persisted tensor records read",
	})

	RecordPayloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tensor_record_payload_bytes",
		Help:    "Distribution of encoded record payload sizes",
		Buckets: []float64{64, 1024, 16384, 262144, 4194304, 67108864},
	})
)

// RecordTransfer accounts one lazy synchronization between host and device.
func RecordTransfer(toDevice bool, bytes int) {
	totalBytesMoved.Add(int64(bytes))
	if toDevice {
		HostToDeviceCopies.Inc()
		HostToDeviceBytes.Add(float64(bytes))
	} else {
		DeviceToHostCopies.Inc()
		DeviceToHostBytes.Add(float64(bytes))
	}
}

// TotalBytesMoved returns the cumulative bytes moved across the host/device
// boundary since process start.
func TotalBytesMoved() int64 {
	return totalBytesMoved.Load()
}

// RecordDeviceMemory updates the device allocation gauge.
func RecordDeviceMemory(bytes int64) {
	DeviceMemoryAllocated.Set(float64(bytes))
}

// RecordHostMemory updates the host allocation gauge.
func RecordHostMemory(bytes int64) {
	HostMemoryAllocated.Set(float64(bytes))
}

// RecordCellAllocation accounts one storage cell allocation.
func RecordCellAllocation(bytes int) {
	CellAllocations.Inc()
	CellByteSize.Observe(float64(bytes))
}

// RecordEncoded accounts one persisted record write.
func RecordEncoded(payloadBytes int) {
	RecordsEncoded.Inc()
	RecordPayloadBytes.Observe(float64(payloadBytes))
}

// RecordDecoded accounts one persisted record read.
func RecordDecoded() {
	RecordsDecoded.Inc()
}
