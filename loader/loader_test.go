// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/basalt3d/basalt/loader"
	"github.com/basalt3d/basalt/model"
)

type fakeResident struct {
	payload  loader.Payload
	released bool
}

func (r *fakeResident) Release() {
	r.released = true
}

type fakePromoter struct {
	promoted int
	failNext error
}

func (p *fakePromoter) Promote(pl loader.Payload) (loader.Resident, error) {
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return nil, err
	}
	p.promoted++
	return &fakeResident{payload: pl}, nil
}

type stubFontSource struct{}

func (stubFontSource) Rasterize(data []byte) (*loader.DecodedImage, []byte, error) {
	return &loader.DecodedImage{Width: 1, Height: 1, Pix: []byte{255, 255, 255, 255}}, []byte("metrics"), nil
}

type stubMeshSource struct{}

func (stubMeshSource) Parse(data []byte) (*model.Mesh, error) {
	m := model.Quad()
	return &m, nil
}

// gatedSource blocks every read until the gate closes, failing afterwards.
type gatedSource struct {
	gate chan struct{}
}

func (s gatedSource) ReadAll(location string) ([]byte, error) {
	<-s.gate
	return nil, errors.New("no file or directory at: " + location)
}

func testAssetDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "loaderTest")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func drainUntil(t *testing.T, l *loader.Loader, p loader.Promoter, ref string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, got := range l.DrainReady(p) {
			if got == ref {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%q never became resident", ref)
}

func waitForState(t *testing.T, l *loader.Loader, p loader.Promoter, ref string, want loader.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		l.DrainReady(p)
		if st, ok := l.State(ref); ok && st == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%q never reached %s", ref, want)
}

func TestAsyncLoadLifecycle(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()
	writeTestPNG(t, dir, "brick.png", 2, 3)

	l := loader.New(loader.Config{Workers: 2, Source: loader.DirSource{Root: dir}})
	defer l.Close()

	if err := l.Register("brick", "brick.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Get("brick"); ok {
		t.Fatal("reference resident before any load")
	}

	p := &fakePromoter{}
	l.LoadAsync("brick")
	drainUntil(t, l, p, "brick")

	first, ok := l.Get("brick")
	if !ok {
		t.Fatal("brick not resident after drain reported it")
	}
	res := first.(*fakeResident)
	if res.payload.Kind != loader.KindTexture {
		t.Fatalf("payload kind %s", res.payload.Kind)
	}
	if res.payload.Image.Width != 2 || res.payload.Image.Height != 3 {
		t.Fatalf("decoded %dx%d, want 2x3", res.payload.Image.Width, res.payload.Image.Height)
	}

	second, ok := l.Get("brick")
	if !ok || second != first {
		t.Fatal("repeated Get is not stable")
	}
	if st, _ := l.State("brick"); st != loader.StateResident {
		t.Fatalf("state %s after residency", st)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	l := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: "."}})
	defer l.Close()

	if err := l.Register("tex", "a.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	if err := l.Register("tex", "b.png", loader.KindTexture); err != loader.ErrAlreadyRegistered {
		t.Fatalf("error %v, want ErrAlreadyRegistered", err)
	}

	// The rejected registration must not have dispatched anything.
	p := &fakePromoter{}
	if got := l.DrainReady(p); len(got) != 0 {
		t.Fatalf("drain returned %v with no load requested", got)
	}
	if p.promoted != 0 {
		t.Fatal("promotion ran for a rejected registration")
	}
	if st, _ := l.State("tex"); st != loader.StateRegistered {
		t.Fatalf("state %s, want registered", st)
	}
}

func TestDuplicateRegistrationPanicsInDebug(t *testing.T) {
	l := loader.New(loader.Config{Workers: 1, Debug: true, Source: loader.DirSource{Root: "."}})
	defer l.Close()

	if err := l.Register("tex", "a.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic in debug mode")
		}
	}()
	l.Register("tex", "b.png", loader.KindTexture)
}

func TestSyncAndAsyncLoadsConverge(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()
	writeTestPNG(t, dir, "stone.png", 4, 4)

	direct := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: dir}})
	defer direct.Close()
	p1 := &fakePromoter{}
	if err := direct.SyncLoad("stone", "stone.png", loader.KindTexture, p1); err != nil {
		t.Fatal(err)
	}

	pooled := loader.New(loader.Config{Workers: 2, Source: loader.DirSource{Root: dir}})
	defer pooled.Close()
	p2 := &fakePromoter{}
	if err := pooled.Register("stone", "stone.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	pooled.LoadAsync("stone")
	drainUntil(t, pooled, p2, "stone")

	a, _ := direct.Get("stone")
	b, _ := pooled.Get("stone")
	ai := a.(*fakeResident).payload.Image
	bi := b.(*fakeResident).payload.Image
	if ai.Width != bi.Width || ai.Height != bi.Height || !bytes.Equal(ai.Pix, bi.Pix) {
		t.Fatal("sync and async loads did not converge to the same payload")
	}
}

func TestLoadAsyncUnknownReference(t *testing.T) {
	l := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: "."}})
	defer l.Close()

	l.LoadAsync("never-registered")
	if _, ok := l.Get("never-registered"); ok {
		t.Fatal("unknown reference reported resident")
	}
	if _, ok := l.State("never-registered"); ok {
		t.Fatal("unknown reference has a state")
	}
}

func TestMissingAssetFailsLoudly(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()

	l := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: dir}})
	defer l.Close()

	if err := l.Register("ghost", "ghost.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	l.LoadAsync("ghost")

	p := &fakePromoter{}
	waitForState(t, l, p, "ghost", loader.StateFailed)

	err := l.Err("ghost")
	if err == nil || !strings.Contains(err.Error(), "ghost.png") {
		t.Fatalf("failure does not name the missing path: %v", err)
	}
	if _, ok := l.Get("ghost"); ok {
		t.Fatal("failed load reported resident")
	}
}

func TestPromotionFailureKeepsReferenceInspectable(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()
	writeTestPNG(t, dir, "brick.png", 2, 2)

	l := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: dir}})
	defer l.Close()

	if err := l.Register("brick", "brick.png", loader.KindTexture); err != nil {
		t.Fatal(err)
	}
	l.LoadAsync("brick")

	p := &fakePromoter{failNext: errors.New("device out of memory")}
	waitForState(t, l, p, "brick", loader.StateFailed)

	if err := l.Err("brick"); err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("promotion failure not kept: %v", err)
	}
	if _, ok := l.Get("brick"); ok {
		t.Fatal("failed promotion reported resident")
	}
}

func TestFontAndModelCollaborators(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()
	if err := ioutil.WriteFile(filepath.Join(dir, "face.bin"), []byte("face"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "ship.bin"), []byte("ship"), 0644); err != nil {
		t.Fatal(err)
	}

	l := loader.New(loader.Config{
		Workers: 1,
		Source:  loader.DirSource{Root: dir},
		Fonts:   stubFontSource{},
		Meshes:  stubMeshSource{},
	})
	defer l.Close()

	p := &fakePromoter{}
	if err := l.SyncLoad("face", "face.bin", loader.KindFont, p); err != nil {
		t.Fatal(err)
	}
	font, _ := l.Get("face")
	fp := font.(*fakeResident).payload
	if fp.Image == nil || len(fp.Metrics) == 0 {
		t.Fatal("font payload missing atlas or metrics")
	}

	if err := l.SyncLoad("ship", "ship.bin", loader.KindModel, p); err != nil {
		t.Fatal(err)
	}
	mesh, _ := l.Get("ship")
	if mp := mesh.(*fakeResident).payload; mp.Mesh == nil || mp.Mesh.IndexCount() == 0 {
		t.Fatal("model payload missing mesh")
	}
}

func TestShapeLoadsWithoutSource(t *testing.T) {
	l := loader.New(loader.Config{Workers: 1, Source: loader.DirSource{Root: "/nonexistent"}})
	defer l.Close()

	p := &fakePromoter{}
	if err := l.SyncLoad("unit-quad", "quad", loader.KindShape, p); err != nil {
		t.Fatal(err)
	}

	r, ok := l.Get("unit-quad")
	if !ok {
		t.Fatal("shape not resident")
	}
	if mesh := r.(*fakeResident).payload.Mesh; mesh == nil || mesh.IndexCount() != 6 {
		t.Fatal("quad mesh not produced")
	}
}

func TestFullTaskQueueDefersLoad(t *testing.T) {
	gate := make(chan struct{})
	l := loader.New(loader.Config{Workers: 1, QueueDepth: 1, Source: gatedSource{gate: gate}})
	defer l.Close()

	for _, ref := range []string{"a", "b", "c"} {
		if err := l.Register(ref, ref+".png", loader.KindTexture); err != nil {
			t.Fatal(err)
		}
		l.LoadAsync(ref)
	}

	// One task can be held by the worker and one by the queue, so at
	// least one of the three must have been deferred.
	deferred := 0
	for _, ref := range []string{"a", "b", "c"} {
		if st, _ := l.State(ref); st == loader.StateRegistered {
			deferred++
		}
	}
	if deferred == 0 {
		t.Fatal("no load was deferred past the queue bound")
	}

	close(gate)

	// Deferred loads dispatch on a later call and every reference
	// converges to a terminal state.
	p := &fakePromoter{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		l.DrainReady(p)
		remaining := 0
		for _, ref := range []string{"a", "b", "c"} {
			st, _ := l.State(ref)
			if st == loader.StateRegistered {
				l.LoadAsync(ref)
			}
			if st != loader.StateFailed {
				remaining++
			}
		}
		if remaining == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("deferred loads never converged")
}
