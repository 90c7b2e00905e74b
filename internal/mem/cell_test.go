package mem

import (
	"errors"
	"testing"

	"github.com/TheMatrixLab/caffe/internal/device"
)

func TestCellStartsUninitialized(t *testing.T) {
	c := NewCell(64, device.NewContext())
	if c.State() != Uninitialized {
		t.Errorf("expected uninitialized, got %s", c.State())
	}
	if c.ByteSize() != 64 {
		t.Errorf("expected byte size 64, got %d", c.ByteSize())
	}
}

func TestHostAccessTransitions(t *testing.T) {
	ctx := device.NewContext()

	t.Run("first host read allocates and marks host valid", func(t *testing.T) {
		c := NewCell(16, ctx)
		b := c.HostBytes()
		if len(b) != 16 {
			t.Fatalf("expected 16 bytes, got %d", len(b))
		}
		for i, v := range b {
			if v != 0 {
				t.Errorf("byte %d not zeroed: %d", i, v)
			}
		}
		if c.State() != ValidOnHost {
			t.Errorf("expected valid-on-host, got %s", c.State())
		}
	})

	t.Run("mutable host access invalidates device side", func(t *testing.T) {
		c := NewCell(16, ctx)
		c.DeviceBuffer()
		if c.State() != ValidOnDevice {
			t.Fatalf("expected valid-on-device, got %s", c.State())
		}
		c.MutableHostBytes()
		if c.State() != ValidOnHost {
			t.Errorf("expected valid-on-host after mutable host access, got %s", c.State())
		}
	})
}

func TestLazyCopyToDevice(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(8, ctx)

	host := c.MutableHostBytes()
	for i := range host {
		host[i] = byte(i + 1)
	}

	dev := c.DeviceBuffer()
	if c.State() != ValidOnBoth {
		t.Fatalf("expected valid-on-both after read-only device access, got %s", c.State())
	}
	for i, v := range dev.Bytes() {
		if v != byte(i+1) {
			t.Errorf("device byte %d: expected %d, got %d", i, i+1, v)
		}
	}
}

func TestLazyCopyToHost(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(8, ctx)

	dev := c.MutableDeviceBuffer()
	for i := range dev.Bytes() {
		dev.Bytes()[i] = byte(0xA0 + i)
	}
	if c.State() != ValidOnDevice {
		t.Fatalf("expected valid-on-device, got %s", c.State())
	}

	host := c.HostBytes()
	if c.State() != ValidOnBoth {
		t.Fatalf("expected valid-on-both after read-only host access, got %s", c.State())
	}
	for i, v := range host {
		if v != byte(0xA0+i) {
			t.Errorf("host byte %d: expected %d, got %d", i, 0xA0+i, v)
		}
	}
}

func TestRepeatedReadsDoNotRecopy(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(4, ctx)

	c.MutableHostBytes()[0] = 7
	c.DeviceBuffer()

	// Writing host bytes through the stale read view must not leak to the
	// device without another mutable access.
	c.DeviceBuffer().Bytes()[0] = 9
	if got := c.HostBytes()[0]; got != 7 {
		t.Errorf("host read while valid-on-both should not copy back, got %d", got)
	}
}

func TestSetHostBytes(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(4, ctx)

	ext := []byte{1, 2, 3, 4}
	c.SetHostBytes(ext)
	if c.State() != ValidOnHost {
		t.Fatalf("expected valid-on-host, got %s", c.State())
	}

	// Adopted storage is aliased, not copied.
	ext[2] = 30
	if got := c.HostBytes()[2]; got != 30 {
		t.Errorf("expected adopted storage to alias, got %d", got)
	}

	t.Run("size mismatch is fatal", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on size mismatch")
			}
		}()
		c.SetHostBytes([]byte{1, 2})
	})
}

func TestSetDeviceBuffer(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(4, ctx)

	buf := ctx.Malloc(4)
	buf.Bytes()[0] = 42
	c.SetDeviceBuffer(buf)
	if c.State() != ValidOnDevice {
		t.Fatalf("expected valid-on-device, got %s", c.State())
	}
	if got := c.HostBytes()[0]; got != 42 {
		t.Errorf("expected adopted device value 42, got %d", got)
	}

	t.Run("size mismatch is fatal", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on size mismatch")
			}
		}()
		c.SetDeviceBuffer(ctx.Malloc(8))
	})
}

func TestDeviceAccessWithoutContext(t *testing.T) {
	c := NewCell(8, nil)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on device access without accelerator context")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, device.ErrNoAccelerator) {
			t.Errorf("expected ErrNoAccelerator, got %v", r)
		}
	}()
	c.DeviceBuffer()
}

func TestReleaseResetsState(t *testing.T) {
	ctx := device.NewContext()
	c := NewCell(8, ctx)
	c.MutableHostBytes()
	c.DeviceBuffer()

	c.Release()
	if c.State() != Uninitialized {
		t.Errorf("expected uninitialized after release, got %s", c.State())
	}
}

func TestHostAllocationAccounting(t *testing.T) {
	ctx := device.NewContext()
	before := HostAllocatedBytes()

	c := NewCell(128, ctx)
	c.HostBytes()
	if got := HostAllocatedBytes(); got != before+128 {
		t.Errorf("expected %d host bytes, got %d", before+128, got)
	}

	c.Release()
	if got := HostAllocatedBytes(); got != before {
		t.Errorf("expected %d host bytes after release, got %d", before, got)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Uninitialized: "uninitialized",
		ValidOnHost:   "valid-on-host",
		ValidOnDevice: "valid-on-device",
		ValidOnBoth:   "valid-on-both",
		State(99):     "unknown-state-99",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
