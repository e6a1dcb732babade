package camera

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"helmetwatch/internal/logger"
)

// fakeCapture yields a solid frame every few milliseconds, or fails every read
// once failAfter frames have been served.
type fakeCapture struct {
	fill      color.RGBA
	fail      bool
	failAfter int64
	closed    atomic.Bool
	reads     atomic.Int64
}

func (f *fakeCapture) Read() (image.Image, error) {
	time.Sleep(time.Millisecond)
	n := f.reads.Add(1)
	if f.fail || (f.failAfter > 0 && n > f.failAfter) {
		return nil, errors.New("stream ended")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = f.fill.R, f.fill.G, f.fill.B, f.fill.A
	}
	return img, nil
}

func (f *fakeCapture) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeOpener hands out captures by source URL and refuses sources named "missing".
type fakeOpener struct {
	mu       sync.Mutex
	captures map[string]*fakeCapture
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{captures: make(map[string]*fakeCapture)}
}

func (o *fakeOpener) open(src Source) (Capture, error) {
	if src.String() == "missing" {
		return nil, errors.New("cannot open")
	}
	c := &fakeCapture{
		fill: color.RGBA{R: 200, A: 255},
		fail: src.String() == "broken",
	}
	if src.String() == "flaky" {
		c.failAfter = 1
	}
	o.mu.Lock()
	o.captures[src.String()] = c
	o.mu.Unlock()
	return c, nil
}

func (o *fakeOpener) get(key string) *fakeCapture {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.captures[key]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		input    string
		isDevice bool
		str      string
	}{
		{"0", true, "0"},
		{" 2 ", true, "2"},
		{"rtsp://10.0.0.5/stream", false, "rtsp://10.0.0.5/stream"},
		{"http://cam.local:8080/video", false, "http://cam.local:8080/video"},
		{"-1", false, "-1"},
	}

	for _, tt := range tests {
		src, err := ParseSource(tt.input)
		if err != nil {
			t.Fatalf("ParseSource(%q) failed: %v", tt.input, err)
		}
		if src.IsDevice != tt.isDevice || src.String() != tt.str {
			t.Errorf("ParseSource(%q) = %+v, expected device=%v str=%q", tt.input, src, tt.isDevice, tt.str)
		}
	}

	if _, err := ParseSource("   "); err == nil {
		t.Error("Expected error for empty source")
	}
}

func TestRegistry_AddThenRead(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if _, ok := r.Read("A"); ok {
		t.Fatal("Unknown camera should have no frame")
	}

	if err := r.Add("A", URLSource("cam-a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	var frame *image.RGBA
	waitFor(t, "first frame", func() bool {
		var ok bool
		frame, ok = r.Read("A")
		return ok
	})

	if frame.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Errorf("Unexpected frame bounds %v", frame.Bounds())
	}
	if got := frame.RGBAAt(3, 3); got.R != 200 {
		t.Errorf("Unexpected pixel %v", got)
	}
}

func TestRegistry_ReadReturnsCopy(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if err := r.Add("A", URLSource("cam-a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	waitFor(t, "first frame", func() bool { _, ok := r.Read("A"); return ok })

	frame, _ := r.Read("A")
	frame.SetRGBA(0, 0, color.RGBA{G: 255, A: 255})

	again, _ := r.Read("A")
	if again.RGBAAt(0, 0).G == 255 {
		t.Error("Drawing on a read frame must not change the stored frame")
	}
}

func TestRegistry_AddDuplicate(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if err := r.Add("A", URLSource("cam-a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := r.Add("A", URLSource("cam-b"))
	if !errors.Is(err, ErrCameraExists) {
		t.Errorf("Expected ErrCameraExists, got %v", err)
	}
	if opener.get("cam-b") != nil {
		t.Error("Duplicate name should not open a second source")
	}
}

func TestRegistry_RemoveThenRead(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if err := r.Add("A", URLSource("cam-a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	waitFor(t, "first frame", func() bool { _, ok := r.Read("A"); return ok })

	if err := r.Remove("A"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, ok := r.Read("A"); ok {
		t.Error("Read after Remove should report absence")
	}
	if !opener.get("cam-a").closed.Load() {
		t.Error("Capture handle should be released on Remove")
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}

	if err := r.Remove("A"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("Expected ErrCameraNotFound, got %v", err)
	}
}

func TestRegistry_ReadFailureIsScopedToCamera(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if err := r.Add("healthy", URLSource("cam-ok")); err != nil {
		t.Fatalf("Add healthy failed: %v", err)
	}
	if err := r.Add("bad", URLSource("broken")); err != nil {
		t.Fatalf("Add bad failed: %v", err)
	}

	waitFor(t, "bad camera to fail", func() bool {
		status, err := r.Status("bad")
		return err == nil && status.State == string(StateFailed)
	})

	status, _ := r.Status("bad")
	if status.LastError != "stream ended" {
		t.Errorf("Expected recorded read error, got %q", status.LastError)
	}
	if reads := opener.get("broken").reads.Load(); reads != 1 {
		t.Errorf("Failed camera should stop after the first failed read, got %d reads", reads)
	}

	// the healthy camera keeps producing frames after the failure
	before := opener.get("cam-ok").reads.Load()
	waitFor(t, "healthy camera to keep reading", func() bool {
		return opener.get("cam-ok").reads.Load() > before+5
	})

	healthy, _ := r.Status("healthy")
	if healthy.State != string(StateRunning) {
		t.Errorf("Healthy camera should still be running, got %s", healthy.State)
	}
	if _, ok := r.Read("healthy"); !ok {
		t.Error("Healthy camera should still serve frames")
	}
}

func TestRegistry_FailedCameraServesNoFrames(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	if err := r.Add("flaky", URLSource("flaky")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	waitFor(t, "flaky camera to fail", func() bool {
		status, err := r.Status("flaky")
		return err == nil && status.State == string(StateFailed)
	})

	status, _ := r.Status("flaky")
	if status.Frames != 1 {
		t.Errorf("Expected one frame before the failure, got %d", status.Frames)
	}
	if _, ok := r.Read("flaky"); ok {
		t.Error("Failed camera should not serve its last frame")
	}
}

func TestRegistry_StartSkipsUnopenableSources(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	started := r.Start(map[string]Source{
		"Gate": URLSource("cam-gate"),
		"Dock": URLSource("missing"),
		"Desk": DeviceSource(0),
	})

	if started != 2 {
		t.Errorf("Expected 2 started cameras, got %d", started)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "Desk" || names[1] != "Gate" {
		t.Errorf("Unexpected names %v", names)
	}
}

func TestRegistry_StartReplacesExistingCameras(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	r.Start(map[string]Source{"Old": URLSource("cam-old")})
	r.Start(map[string]Source{"New": URLSource("cam-new")})

	if !opener.get("cam-old").closed.Load() {
		t.Error("Start should release cameras from the previous run")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "New" {
		t.Errorf("Unexpected names %v", names)
	}
}

func TestRegistry_StopReleasesEverything(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())

	r.Start(map[string]Source{
		"A": URLSource("cam-a"),
		"B": URLSource("cam-b"),
	})
	r.Stop()

	for _, key := range []string{"cam-a", "cam-b"} {
		if !opener.get(key).closed.Load() {
			t.Errorf("%s should be closed after Stop", key)
		}
	}
	if list := r.List(); len(list) != 0 {
		t.Errorf("Expected no cameras after Stop, got %v", list)
	}
}

func TestRegistry_List(t *testing.T) {
	opener := newFakeOpener()
	r := NewRegistry(opener.open, logger.NewNop())
	defer r.Stop()

	r.Add("Zeta", URLSource("cam-z"))
	r.Add("Alpha", DeviceSource(1))

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 cameras, got %d", len(list))
	}
	if list[0].Name != "Alpha" || list[0].Source != "1" || list[0].State != string(StateRunning) {
		t.Errorf("Unexpected first status %+v", list[0])
	}
	if list[1].Name != "Zeta" {
		t.Errorf("Unexpected second status %+v", list[1])
	}
}
