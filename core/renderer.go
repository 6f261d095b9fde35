// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/basalt3d/basalt/gfx"
	"github.com/basalt3d/basalt/gfx/vkr"
	"github.com/basalt3d/basalt/loader"
	"github.com/basalt3d/basalt/model"
	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
)

// fallbackID keys the built-in resource that is drawn in place of assets
// that are still loading or failed to load.
const fallbackID = "builtin:fallback"

// baseInstanceCapacity is the instance count the per image attribute
// buffers start out with before any growth.
const baseInstanceCapacity = 16

// assetBox embeds the built-in assets, among them the fallback texture.
var assetBox = packr.NewBox("../assets")

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer
func NewVulkanRenderer(instance Instance, cfg RendererConfiguration) (Renderer, error) {
	if len(instance.AvailableDevices()) == 0 {
		return nil, errors.New("no vulkan capable devices available")
	}
	if cfg.FramesInFlight < 1 {
		cfg.FramesInFlight = 2
	}
	return &VulkanRenderer{
		configuration:     cfg,
		surface:           instance.Surface(),
		physicalDevice:    instance.AvailableDevices()[0],
		resourcePositions: make(map[string]int),
		instances:         make(map[ResourceHandle]ResourceInstance),
	}, nil
}

// VulkanRenderer is a Vulkan API renderer
type VulkanRenderer struct {
	Destroyable

	configuration RendererConfiguration

	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	logicalDevice  vk.Device
	deviceQueue    vk.Queue

	currentQueueIndex  uint32
	graphicsQueueIndex uint32

	surfaceFormat vk.SurfaceFormat
	sampleCount   vk.SampleCountFlagBits

	allocator *vkr.MemoryAllocator
	pool      *vkr.CommandPool
	transfer  *vkr.TransferContext

	chain   *vkr.Swapchain
	target  *vkr.RenderTarget
	present *gfx.PresentTarget

	renderPass     vk.RenderPass
	pipelineCache  vk.PipelineCache
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline

	descriptorPool       vk.DescriptorPool
	descriptorSetLayouts []vk.DescriptorSetLayout

	shaders []Shader
	sampler vk.Sampler

	commandBuffers []vk.CommandBuffer

	frames  *gfx.FrameRing
	sync    *vkr.FrameSync
	retired [][]gfx.Releasable

	frame       uint64
	imageIndex  uint32
	skipPresent bool
	spin        float32

	assets       *loader.Loader
	sourceCloser io.Closer
	fallback     *resourceSet

	pendingLock  sync.Mutex
	pendingLoads []string

	resizeLock    sync.Mutex
	resizePending bool
	resizeExtent  gfx.Extent

	resourceLock      sync.RWMutex
	resources         []*resourceSet
	resourcePositions map[string]int

	instanceLock sync.RWMutex
	instances    map[ResourceHandle]ResourceInstance

	instanceCounter uint32
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	requiredExtensions := v.requiredDeviceExtensions()

	{
		var (
			queueFamilyCount uint32
			queueFamilies    []vk.QueueFamilyProperties
		)
		vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, nil)
		queueFamilies = make([]vk.QueueFamilyProperties, queueFamilyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, queueFamilies)

		if queueFamilyCount == 0 {
			return errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queuefamilies on GPU")
		}

		/* Find a suitable queue family for the target Vulkan mode */
		var graphicsFound bool
		var presentFound bool
		var separateQueue bool
		for i := uint32(0); i < queueFamilyCount; i++ {
			var (
				required        vk.QueueFlags
				supportsPresent vk.Bool32
			)
			if graphicsFound {
				// looking for separate present queue
				separateQueue = true
				vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supportsPresent)
				if supportsPresent.B() {
					v.currentQueueIndex = i
					presentFound = true
					break
				}
			}

			required |= vk.QueueFlags(vk.QueueGraphicsBit)
			vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supportsPresent)
			queueFamilies[i].Deref()
			if queueFamilies[i].QueueFlags&required != 0 && supportsPresent.B() {
				v.graphicsQueueIndex = i
				v.currentQueueIndex = i
				graphicsFound = true
				presentFound = true
				break
			}
			if queueFamilies[i].QueueFlags&required != 0 {
				v.graphicsQueueIndex = i
				graphicsFound = true
				// graphics without present, keep looking for a
				// present capable family
			}
		}
		if separateQueue && !presentFound {
			return errors.New("vulkan error: could not find separate queue with present capabilities")
		}
		if !graphicsFound {
			return errors.New("vulkan error: could not find a suitable queue family for the target Vulkan mode")
		}
	}

	/* Logical Device setup */
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1, 0},
	}}

	var vkDevice vk.Device
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredExtensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &vkDevice)); err != nil {
		return errors.New("vk.CreateDevice(): " + err.Error())
	}

	var deviceQueue vk.Queue
	vk.GetDeviceQueue(vkDevice, v.graphicsQueueIndex, 0, &deviceQueue)

	v.deviceQueue = deviceQueue
	v.logicalDevice = vkDevice

	/* ImageFormat */
	var (
		surfaceFormatCount uint32
		surfaceFormats     []vk.SurfaceFormat
	)

	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}

	surfaceFormats = make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}

	surfaceFormats[0].Deref()
	v.surfaceFormat = surfaceFormats[0]

	{
		var supported vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, v.graphicsQueueIndex, v.surface, &supported)); err != nil {
			return errors.New("vk.GetPhysicalDeviceSurfaceSupport(): " + err.Error())
		}

		if !supported.B() {
			return fmt.Errorf("vk.GetPhysicalDeviceSurfaceSupport(): surface is not supported")
		}
	}

	v.sampleCount = sampleCountFlag(v.configuration.SampleCount)

	/* Device memory and transfer machinery */
	allocator, err := vkr.NewMemoryAllocator(v.logicalDevice, v.physicalDevice)
	if err != nil {
		return err
	}
	v.allocator = allocator

	pool, err := vkr.NewCommandPool(v.logicalDevice, v.graphicsQueueIndex)
	if err != nil {
		return err
	}
	v.pool = pool

	v.transfer = vkr.NewTransferContext(v.logicalDevice, v.allocator, v.pool, v.deviceQueue)

	/* Render pass, shared by every swapchain generation */
	renderPass, err := vkr.NewRenderPass(v.logicalDevice, v.surfaceFormat.Format, vk.FormatD16Unorm, v.sampleCount)
	if err != nil {
		return err
	}
	v.renderPass = renderPass

	if err := v.loadShaders(); err != nil {
		return err
	}

	pipelineCache, err := vkr.NewPipelineCache(v.logicalDevice)
	if err != nil {
		return err
	}
	v.pipelineCache = pipelineCache

	/* Frame pacing */
	frameSync, err := vkr.NewFrameSync(v.logicalDevice, v.configuration.FramesInFlight)
	if err != nil {
		return err
	}
	v.sync = frameSync
	v.frames = gfx.NewFrameRing(v.configuration.FramesInFlight)
	v.retired = make([][]gfx.Releasable, v.configuration.FramesInFlight)

	/* Swapchain, framebuffers and the command buffers recording to them */
	present, err := gfx.NewPresentTarget(chainSurface{v}, gfx.Extent{
		Width:  v.configuration.ScreenWidth,
		Height: v.configuration.ScreenHeight,
	})
	if err != nil {
		return err
	}
	v.present = present

	if err := v.buildPipeline(v.chain.ImageCount()); err != nil {
		return err
	}

	sampler, err := vkr.NewSampler(v.logicalDevice)
	if err != nil {
		return err
	}
	v.sampler = sampler

	if err := v.initLoader(); err != nil {
		return err
	}

	if err := v.createFallback(); err != nil {
		return err
	}

	return nil
}

// requiredDeviceExtensions returns the configured device extensions with
// the swapchain extension guaranteed present.
func (v *VulkanRenderer) requiredDeviceExtensions() []string {
	extensions := v.configuration.DeviceExtensions
	for _, ext := range extensions {
		if ext == vk.KhrSwapchainExtensionName {
			return extensions
		}
	}
	return append([]string{vk.KhrSwapchainExtensionName}, extensions...)
}

// sampleCountFlag maps a configured sample count onto the API flag.
// Unknown counts disable multisampling with a warning instead of failing
// renderer setup.
func sampleCountFlag(samples int) vk.SampleCountFlagBits {
	switch samples {
	case 0, 1:
		return vk.SampleCount1Bit
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	}
	log.Warnf("unsupported sample count %d, multisampling disabled", samples)
	return vk.SampleCount1Bit
}

// buildPipeline creates the descriptor set layouts sized to the image
// count, the pipeline layout and the graphics pipeline itself.
func (v *VulkanRenderer) buildPipeline(imageCount int) error {
	layouts, err := vkr.NewDescriptorSetLayouts(v.logicalDevice, imageCount)
	if err != nil {
		return err
	}
	v.descriptorSetLayouts = layouts

	layout, err := vkr.NewPipelineLayout(v.logicalDevice, layouts)
	if err != nil {
		return err
	}
	v.pipelineLayout = layout

	stages, err := pipelineShaderStages(v.shaders)
	if err != nil {
		return err
	}

	pipeline, err := vkr.NewPipeline(v.logicalDevice, v.pipelineCache, v.renderPass, v.pipelineLayout, stages, v.sampleCount)
	if err != nil {
		return errors.New("pipeline build failed: " + err.Error())
	}
	v.pipeline = pipeline
	return nil
}

// rebuildPipeline swaps the pipeline for one sized to a new swapchain
// image count. Only reachable when a recreated chain reports a different
// count than the one it replaced.
func (v *VulkanRenderer) rebuildPipeline(imageCount int) error {
	log.Warnf("swapchain image count changed to %d, rebuilding pipeline", imageCount)

	vk.DestroyPipeline(v.logicalDevice, v.pipeline, nil)
	vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)
	vkr.DestroyDescriptorSetLayouts(v.logicalDevice, v.descriptorSetLayouts)
	v.descriptorSetLayouts = nil

	return v.buildPipeline(imageCount)
}

func (v *VulkanRenderer) loadShaders() error {
	var shaders []Shader
	shaderFiles, shaderTypes, err := loadShaderFilesFromDirectory(v.configuration.ShaderDirectory)
	if err != nil {
		return err
	}

	for idx, val := range shaderFiles {
		shader, err := NewVulkanShader(val, shaderTypes[idx], v.logicalDevice)
		if err != nil {
			return err
		}
		shaders = append(shaders, shader)
	}
	v.shaders = shaders
	return nil
}

// initLoader builds the asset pipeline: an archive source when one is
// configured, loose files otherwise.
func (v *VulkanRenderer) initLoader() error {
	cfg := v.configuration.Loader

	var source loader.Source
	if cfg.Archive != "" {
		archive, err := loader.OpenArchive(cfg.Archive)
		if err != nil {
			return fmt.Errorf("asset archive %s: %s", cfg.Archive, err.Error())
		}
		source = archive
		v.sourceCloser = archive
	} else {
		root := cfg.AssetRoot
		if root == "" {
			root = "."
		}
		source = loader.DirSource{Root: root}
	}

	v.assets = loader.New(loader.Config{
		Workers:    cfg.Workers,
		QueueDepth: cfg.QueueDepth,
		Debug:      cfg.Debug,
		Source:     source,
		Meshes:     colladaMeshSource{},
	})
	return nil
}

// colladaMeshSource parses .dae documents into device uploadable meshes.
type colladaMeshSource struct{}

// Parse implements loader.MeshSource.
func (colladaMeshSource) Parse(data []byte) (*model.Mesh, error) {
	return model.ImportCollada(data)
}

// createFallback uploads the built-in texture and quad that stand in for
// resources that are not resident.
func (v *VulkanRenderer) createFallback() error {
	data, err := assetBox.MustBytes("default.png")
	if err != nil {
		return errors.New("built-in fallback texture missing: " + err.Error())
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return errors.New("built-in fallback texture broken: " + err.Error())
	}

	pixels, err := GetPixels(img, 0)
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	texture, err := v.transfer.UploadImage(pixels, gfx.Extent{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	})
	if err != nil {
		return err
	}

	fallback, err := v.buildResourceSet(model.Quad(), texture)
	if err != nil {
		return err
	}
	fallback.id = fallbackID
	v.fallback = fallback
	return nil
}

// chainSurface adapts the renderer to gfx.Surface. A separate type keeps
// the image index taking Present of the surface apart from the renderer's
// own frame level Present.
type chainSurface struct {
	r *VulkanRenderer
}

func (s chainSurface) CreateChain(extent gfx.Extent) (int, error) { return s.r.createChain(extent) }

func (s chainSurface) CreateTargets(imageCount int, extent gfx.Extent) error {
	return s.r.createTargets(imageCount, extent)
}

func (s chainSurface) DestroyTargets() { s.r.destroyTargets() }

func (s chainSurface) DestroyChain() { s.r.destroyChain() }

func (s chainSurface) Acquire() (uint32, error) { return s.r.acquireImage() }

func (s chainSurface) Present(imageIndex uint32) error { return s.r.presentImage(imageIndex) }

// surfaceExtent returns the extent the surface dictates, or the requested
// one where the window system leaves the choice to the swapchain.
func (v *VulkanRenderer) surfaceExtent(requested gfx.Extent) gfx.Extent {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, v.surface, &caps)); err != nil {
		return requested
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width == math.MaxUint32 {
		return requested
	}
	return gfx.Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
}

// createChain builds a swapchain, handing the previous one over to the
// driver and destroying it once the new chain exists.
func (v *VulkanRenderer) createChain(extent gfx.Extent) (int, error) {
	extent = v.surfaceExtent(extent)

	old := v.chain
	if old != nil {
		old.DestroyViews()
	}

	chain, err := vkr.NewSwapchain(v.logicalDevice, v.physicalDevice, v.surface, v.surfaceFormat, v.configuration.SwapchainSize, extent, old)
	if err != nil {
		return 0, err
	}
	if old != nil {
		old.Destroy()
		v.chain = nil
	}

	if err := chain.CreateViews(); err != nil {
		chain.Destroy()
		return 0, err
	}
	v.chain = chain
	return chain.ImageCount(), nil
}

// createTargets builds framebuffers, command buffers and the descriptor
// pool for the current chain and re-sizes every resource's per image
// state against it.
func (v *VulkanRenderer) createTargets(imageCount int, extent gfx.Extent) error {
	// The chain knows the extent it was actually created with, which may
	// differ from the requested one when the surface dictates sizes.
	extent = v.chain.Extent()

	target, err := vkr.NewRenderTarget(v.logicalDevice, v.allocator, v.renderPass, v.chain.Views(), v.surfaceFormat.Format, extent, v.sampleCount)
	if err != nil {
		return err
	}
	v.target = target

	commandBuffers, err := v.pool.Allocate(imageCount)
	if err != nil {
		return err
	}
	v.commandBuffers = commandBuffers

	descriptorPool, err := vkr.NewDescriptorPool(v.logicalDevice, imageCount)
	if err != nil {
		return err
	}
	v.descriptorPool = descriptorPool

	if len(v.descriptorSetLayouts) == 0 {
		// First build, the pipeline is constructed right after this.
		return nil
	}

	if imageCount != len(v.descriptorSetLayouts) {
		if err := v.rebuildPipeline(imageCount); err != nil {
			return err
		}
	}

	v.resourceLock.Lock()
	defer v.resourceLock.Unlock()
	for _, rs := range v.resources {
		if err := v.buildFrameState(rs); err != nil {
			return err
		}
	}
	if v.fallback != nil {
		if err := v.buildFrameState(v.fallback); err != nil {
			return err
		}
	}
	return nil
}

// destroyTargets tears down everything createTargets built. The device is
// drained first so no submitted frame still references the framebuffers.
func (v *VulkanRenderer) destroyTargets() {
	if v.target == nil && v.descriptorPool == nil && len(v.commandBuffers) == 0 {
		return
	}

	vk.DeviceWaitIdle(v.logicalDevice)
	if v.frames != nil {
		v.frames.WaitIdle()
		for slot := range v.retired {
			v.releaseRetired(uint64(slot))
		}
	}

	v.pool.Free(v.commandBuffers)
	v.commandBuffers = nil

	if v.descriptorPool != nil {
		// Destroying the pool frees every descriptor set with it.
		vk.DestroyDescriptorPool(v.logicalDevice, v.descriptorPool, nil)
		v.descriptorPool = nil

		v.resourceLock.Lock()
		for _, rs := range v.resources {
			rs.descriptorSets = nil
		}
		if v.fallback != nil {
			v.fallback.descriptorSets = nil
		}
		v.resourceLock.Unlock()
	}

	if v.target != nil {
		v.target.Release()
		v.target = nil
	}
}

func (v *VulkanRenderer) destroyChain() {
	if v.chain != nil {
		v.chain.Destroy()
		v.chain = nil
	}
}

func (v *VulkanRenderer) acquireImage() (uint32, error) {
	return v.chain.Acquire(v.sync.ImageAvailable(v.frame))
}

func (v *VulkanRenderer) presentImage(imageIndex uint32) error {
	return v.chain.Present(v.deviceQueue, v.sync.RenderFinished(v.frame), imageIndex)
}

// ResizeNotify implements interface
func (v *VulkanRenderer) ResizeNotify(width, height uint32) {
	v.resizeLock.Lock()
	v.resizePending = true
	v.resizeExtent = gfx.Extent{Width: width, Height: height}
	v.resizeLock.Unlock()
}

func (v *VulkanRenderer) applyPendingResize() {
	v.resizeLock.Lock()
	pending, extent := v.resizePending, v.resizeExtent
	v.resizePending = false
	v.resizeLock.Unlock()

	if pending {
		v.present.Invalidate(extent)
	}
}

// Draw implements interface
func (v *VulkanRenderer) Draw() error {
	if err := v.frames.Begin(v.frame); err != nil {
		return err
	}
	v.releaseRetired(v.frame)

	v.schedulePendingLoads()
	v.installResidents(v.assets.DrainReady(v))

	v.applyPendingResize()

	imageIdx, err := v.present.AcquireNext()
	switch err {
	case nil:
	case gfx.ErrSwapchainOutOfDate, gfx.ErrUnsupportedDimensions:
		// Mid-resize or minimised, skip the frame. The next draw
		// recreates the chain against the settled surface.
		v.skipPresent = true
		return nil
	default:
		return err
	}
	v.imageIndex = imageIdx
	v.skipPresent = false

	v.spin += 0.005

	if err := v.updateFrameData(imageIdx); err != nil {
		return err
	}

	if err := v.recordCommands(imageIdx); err != nil {
		return err
	}

	token, err := vkr.NewFenceToken(v.logicalDevice)
	if err != nil {
		return err
	}

	if err := vkr.Submit(v.deviceQueue, v.commandBuffers[imageIdx], v.sync.ImageAvailable(v.frame), v.sync.RenderFinished(v.frame), token.Fence()); err != nil {
		token.Release()
		return err
	}
	v.frames.End(v.frame, token)
	return nil
}

// Present implements interface
func (v *VulkanRenderer) Present() error {
	if v.skipPresent {
		v.skipPresent = false
		return nil
	}

	if err := v.present.PresentIndex(v.imageIndex); err != nil {
		return err
	}
	v.frame++
	return nil
}

// schedulePendingLoads moves load requests posted by other goroutines
// into the loader. The loader is only ever touched from the draw loop.
func (v *VulkanRenderer) schedulePendingLoads() {
	v.pendingLock.Lock()
	pending := v.pendingLoads
	v.pendingLoads = nil
	v.pendingLock.Unlock()

	for _, ref := range pending {
		v.ensureLoading(ref)
	}
}

// ensureLoading registers and schedules an asset the first time an
// instance references it. Loads that could not dispatch stay registered
// and are retried here on a later frame; decoding, resident and failed
// references are left alone.
func (v *VulkanRenderer) ensureLoading(ref string) {
	if _, known := v.assets.State(ref); !known {
		kind := loader.KindFromLocation(ref)
		location := ref
		if kind == loader.KindShape {
			location = strings.TrimPrefix(ref, "shape:")
		}
		if err := v.assets.Register(ref, location, kind); err != nil {
			log.Errorf("asset registration failed for %s: %s", ref, err)
			return
		}
	}
	if state, _ := v.assets.State(ref); state == loader.StateRegistered {
		v.assets.LoadAsync(ref)
	}
}

// installResidents indexes freshly promoted resources for drawing.
func (v *VulkanRenderer) installResidents(refs []string) {
	for _, ref := range refs {
		resident, ok := v.assets.Get(ref)
		if !ok {
			continue
		}
		rs, ok := resident.(*resourceSet)
		if !ok {
			continue
		}
		rs.id = ref

		v.resourceLock.Lock()
		v.resources = append(v.resources, rs)
		v.resourcePositions[ref] = len(v.resources) - 1
		v.resourceLock.Unlock()
	}
}

// LoadResourceSync loads and promotes an asset before returning, for
// assets that must be resident on the very first frame. Must be called
// from the goroutine that runs Draw.
func (v *VulkanRenderer) LoadResourceSync(ref string) error {
	kind := loader.KindFromLocation(ref)
	location := ref
	if kind == loader.KindShape {
		location = strings.TrimPrefix(ref, "shape:")
	}
	if err := v.assets.SyncLoad(ref, location, kind, v); err != nil {
		return err
	}
	v.installResidents([]string{ref})
	return nil
}

// RegisterTexture records an image asset under ref without any I/O.
// Must be called from the goroutine that runs Draw.
func (v *VulkanRenderer) RegisterTexture(ref, location string) error {
	return v.assets.Register(ref, location, loader.KindTexture)
}

// LoadTexture schedules a registered texture for decode on the loader
// pool. The texture becomes drawable on the frame that drains it.
func (v *VulkanRenderer) LoadTexture(ref string) {
	v.assets.LoadAsync(ref)
}

// Texture reports whether the texture behind ref is device resident.
// Draws referencing a non resident texture sample the fallback.
func (v *VulkanRenderer) Texture(ref string) bool {
	v.resourceLock.RLock()
	defer v.resourceLock.RUnlock()
	_, ok := v.resourcePositions[ref]
	return ok
}

// RegisterFont records a font asset under ref without any I/O.
// Must be called from the goroutine that runs Draw.
func (v *VulkanRenderer) RegisterFont(ref, location string) error {
	return v.assets.Register(ref, location, loader.KindFont)
}

// LoadFont schedules a registered font for rasterisation on the loader pool.
func (v *VulkanRenderer) LoadFont(ref string) {
	v.assets.LoadAsync(ref)
}

// Font returns the metrics blob of a resident font atlas. The bool is
// false while the font is unknown or still loading.
func (v *VulkanRenderer) Font(ref string) ([]byte, bool) {
	v.resourceLock.RLock()
	defer v.resourceLock.RUnlock()
	if idx, ok := v.resourcePositions[ref]; ok {
		return v.resources[idx].metrics, true
	}
	return nil, false
}

// LoadShape makes a builtin shape resident under "shape:<name>" before
// returning. Shapes decode in process without touching the asset source.
func (v *VulkanRenderer) LoadShape(name string) error {
	return v.LoadResourceSync("shape:" + name)
}

// LoadModel schedules a model file for decode through the mesh source.
// The location doubles as the draw reference.
func (v *VulkanRenderer) LoadModel(location string) error {
	if err := v.assets.Register(location, location, loader.KindModel); err != nil {
		return err
	}
	v.assets.LoadAsync(location)
	return nil
}

// Promote implements loader.Promoter. Runs on the draw loop goroutine and
// turns one decoded payload into device resident buffers and images.
func (v *VulkanRenderer) Promote(p loader.Payload) (loader.Resident, error) {
	var (
		texture *vkr.Image
		mesh    model.Mesh
	)

	switch p.Kind {
	case loader.KindTexture, loader.KindFont:
		uploaded, err := v.transfer.UploadImage(p.Image.Pix, gfx.Extent{
			Width:  uint32(p.Image.Width),
			Height: uint32(p.Image.Height),
		})
		if err != nil {
			return nil, err
		}
		texture = uploaded
		mesh = model.Quad()
	case loader.KindModel, loader.KindShape:
		mesh = *p.Mesh
	default:
		return nil, fmt.Errorf("payload kind %s cannot be made resident", p.Kind)
	}

	rs, err := v.buildResourceSet(mesh, texture)
	if err != nil {
		return nil, err
	}
	rs.metrics = p.Metrics
	return rs, nil
}

// buildResourceSet uploads mesh buffers and sizes the per image state for
// one resource. A nil texture means the set samples the fallback texture.
func (v *VulkanRenderer) buildResourceSet(mesh model.Mesh, texture *vkr.Image) (*resourceSet, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		if texture != nil {
			texture.Release()
		}
		return nil, errors.New("resource mesh is empty")
	}

	rs := &resourceSet{
		device:     v.logicalDevice,
		indexCount: mesh.IndexCount(),
		texture:    texture,
	}

	vertexData := rawBytes(unsafe.Pointer(&mesh.Vertices[0]), len(mesh.Vertices)*int(unsafe.Sizeof(model.Vertex{})))
	vertexBuffer, err := v.transfer.UploadBuffer(vertexData, vk.BufferUsageVertexBufferBit)
	if err != nil {
		rs.Destroy()
		return nil, err
	}
	rs.vertexBuffer = vertexBuffer

	indexData := rawBytes(unsafe.Pointer(&mesh.Indices[0]), len(mesh.Indices)*4)
	indexBuffer, err := v.transfer.UploadBuffer(indexData, vk.BufferUsageIndexBufferBit)
	if err != nil {
		rs.Destroy()
		return nil, err
	}
	rs.indexBuffer = indexBuffer

	if err := v.buildFrameState(rs); err != nil {
		rs.Destroy()
		return nil, err
	}
	return rs, nil
}

// buildFrameState sizes the per swapchain image state of a resource set
// against the current chain: uniform slots, instance attribute buffers
// and descriptor sets. Existing state is replaced.
func (v *VulkanRenderer) buildFrameState(rs *resourceSet) error {
	imageCount := v.chain.ImageCount()

	if rs.uniforms != nil {
		rs.uniforms.Release()
	}
	uniforms, err := vkr.NewUniformRing(v.logicalDevice, v.allocator, uint(unsafe.Sizeof(model.Uniform{})), imageCount)
	if err != nil {
		return err
	}
	rs.uniforms = uniforms

	if len(rs.instanceBuffers) != imageCount {
		for _, b := range rs.instanceBuffers {
			if b != nil {
				b.Release()
			}
		}
		rs.instanceBuffers = make([]*vkr.Buffer, imageCount)
		rs.instanceCapacities = make([]int, imageCount)
	}
	rs.drawCounts = make([]uint32, imageCount)

	textureView := v.textureViewFor(rs)
	sets, err := vkr.AllocateDescriptorSets(v.logicalDevice, v.descriptorPool, v.descriptorSetLayouts, rs.uniforms, textureView, v.sampler)
	if err != nil {
		return err
	}
	rs.descriptorSets = sets
	return nil
}

func (v *VulkanRenderer) textureViewFor(rs *resourceSet) vk.ImageView {
	if rs.texture != nil {
		return rs.texture.View()
	}
	return v.fallback.texture.View()
}

// retire parks a releasable until every frame that may still reference it
// has completed on the device.
func (v *VulkanRenderer) retire(r gfx.Releasable) {
	slot := v.frame % uint64(len(v.retired))
	v.retired[slot] = append(v.retired[slot], r)
}

func (v *VulkanRenderer) releaseRetired(frame uint64) {
	slot := frame % uint64(len(v.retired))
	for _, r := range v.retired[slot] {
		r.Release()
	}
	v.retired[slot] = nil
}

// ensureInstanceCapacity grows one image slot's instance buffer to hold
// count instances. Growth doubles and the previous buffer is retired, the
// frames in flight may still be reading it.
func (v *VulkanRenderer) ensureInstanceCapacity(rs *resourceSet, slot, count int) error {
	if rs.instanceBuffers[slot] != nil && count <= rs.instanceCapacities[slot] {
		return nil
	}

	capacity := rs.instanceCapacities[slot]
	if capacity < baseInstanceCapacity {
		capacity = baseInstanceCapacity
	}
	for capacity < count {
		capacity *= 2
	}

	buffer, err := vkr.NewBuffer(
		v.logicalDevice,
		uint(capacity)*uint(unsafe.Sizeof(model.Instance{})),
		vk.BufferUsageVertexBufferBit,
		vk.SharingModeExclusive,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		v.allocator,
	)
	if err != nil {
		return err
	}

	if old := rs.instanceBuffers[slot]; old != nil {
		v.retire(old)
		log.Warnf("instance buffer of %s grown to %d instances", rs.id, capacity)
	}
	rs.instanceBuffers[slot] = &buffer
	rs.instanceCapacities[slot] = capacity
	return nil
}

// gatherInstances groups the live instances by the resource that draws
// them. Instances of resources that are not resident yet collect under
// the fallback.
func (v *VulkanRenderer) gatherInstances() map[string][]model.Instance {
	grouped := make(map[string][]model.Instance)

	v.resourceLock.RLock()
	v.instanceLock.RLock()
	defer v.instanceLock.RUnlock()
	defer v.resourceLock.RUnlock()

	for _, instance := range v.instances {
		id := instance.ResourceID
		if _, ok := v.resourcePositions[id]; !ok {
			id = fallbackID
		}
		grouped[id] = append(grouped[id], model.Instance{
			Transform: instance.Position.Mul4(instance.Rotation),
		})
	}
	return grouped
}

// updateFrameData writes this image's uniform slot and instance buffers
// for every drawable resource and snapshots the draw counts the command
// recording will use.
func (v *VulkanRenderer) updateFrameData(imageIdx uint32) error {
	grouped := v.gatherInstances()
	extent := v.chain.Extent()

	ubo := model.Uniform{
		Model:      glm.Ident4(),
		View:       glm.LookAt(2, 2, 2, 0, 0, 0, 0, 0, 1),
		Projection: glm.Perspective(45, (float32)(extent.Width)/(float32)(extent.Height), 0.1, 10),
	}
	ubo.Projection[5] *= -1 // Flip from OpenGl to Vulkan projection

	v.resourceLock.RLock()
	defer v.resourceLock.RUnlock()

	sets := make([]*resourceSet, 0, len(v.resources)+1)
	sets = append(sets, v.resources...)
	if v.fallback != nil {
		sets = append(sets, v.fallback)
	}

	slot := int(imageIdx)
	for _, rs := range sets {
		if rs.Destroyed() {
			continue
		}

		if err := rs.uniforms.Write(slot, rawBytes(unsafe.Pointer(&ubo), int(unsafe.Sizeof(ubo)))); err != nil {
			return err
		}

		batch := grouped[rs.id]
		rs.drawCounts[slot] = uint32(len(batch))
		if len(batch) == 0 {
			continue
		}

		if err := v.ensureInstanceCapacity(rs, slot, len(batch)); err != nil {
			return err
		}
		data := rawBytes(unsafe.Pointer(&batch[0]), len(batch)*int(unsafe.Sizeof(model.Instance{})))
		if err := rs.instanceBuffers[slot].Write(data); err != nil {
			return err
		}
	}
	return nil
}

// recordCommands records the draw commands for one swapchain image.
func (v *VulkanRenderer) recordCommands(imageIdx uint32) error {
	recorder := vkr.NewRecorder(v.commandBuffers[imageIdx])
	if err := recorder.Begin(); err != nil {
		return err
	}
	cmd := recorder.Get()

	attachments := 2
	if v.sampleCount != vk.SampleCount1Bit {
		attachments = 3
	}
	clearValues := make([]vk.ClearValue, attachments)
	clearValues[0].SetColor([]float32{
		0.005, 0.005, 0.005, 0.005,
	})
	clearValues[1].SetDepthStencil(1, 0)

	extent := v.chain.Extent()
	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  v.renderPass,
		Framebuffer: v.target.Framebuffer(imageIdx),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: 0, Y: 0,
			},
			Extent: vk.Extent2D{
				Width:  extent.Width,
				Height: extent.Height,
			},
		},
		ClearValueCount: uint32(attachments),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.pipeline)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}})

	pc := vkr.PushConstant{
		Model: glm.HomogRotate3DZ(v.spin),
	}

	v.resourceLock.RLock()
	for _, rs := range v.resources {
		v.recordSet(cmd, rs, imageIdx, &pc)
	}
	if v.fallback != nil {
		v.recordSet(cmd, v.fallback, imageIdx, &pc)
	}
	v.resourceLock.RUnlock()

	vk.CmdEndRenderPass(cmd)
	return recorder.End()
}

func (v *VulkanRenderer) recordSet(cmd vk.CommandBuffer, rs *resourceSet, imageIdx uint32, pc *vkr.PushConstant) {
	count := rs.drawCounts[imageIdx]
	if rs.Destroyed() || count == 0 {
		return
	}

	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{rs.vertexBuffer.Get()}, []vk.DeviceSize{0})
	vk.CmdBindVertexBuffers(cmd, 1, 1, []vk.Buffer{rs.instanceBuffers[imageIdx].Get()}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, rs.indexBuffer.Get(), 0, vk.IndexTypeUint32)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipelineLayout, 0, 1, []vk.DescriptorSet{rs.descriptorSets[imageIdx]}, 0, nil)
	vk.CmdPushConstants(cmd, v.pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, uint32(unsafe.Sizeof(vkr.PushConstant{})), unsafe.Pointer(pc))
	vk.CmdDrawIndexed(cmd, rs.indexCount, count, 0, 0, 0)
}

// ResourceHandle implements interface
func (v *VulkanRenderer) ResourceHandle() ResourceHandle {
	// TODO: Handles shouldn't be an infinitely increasing counter, someday it will wrap around on a long run
	return ResourceHandle(atomic.AddUint32(&v.instanceCounter, 1) - 1)
}

// ResourceUpdate implements interface
func (v *VulkanRenderer) ResourceUpdate(handle ResourceHandle, instance ResourceInstance) <-chan struct{} {
	sig := make(chan struct{}, 1)
	if instance.ResourceID == "" {
		close(sig)
		return sig
	}

	v.resourceLock.RLock()
	_, resident := v.resourcePositions[instance.ResourceID]
	v.resourceLock.RUnlock()
	if !resident {
		v.pendingLock.Lock()
		v.pendingLoads = append(v.pendingLoads, instance.ResourceID)
		v.pendingLock.Unlock()
	}

	defer func() { sig <- struct{}{} }()

	v.instanceLock.Lock()
	defer v.instanceLock.Unlock()

	v.instances[handle] = instance
	return sig
}

// ResourceDelete implements interface
func (v *VulkanRenderer) ResourceDelete(handle ResourceHandle) {
	// TODO: unload resource sets that no instance references anymore
	v.instanceLock.Lock()
	defer v.instanceLock.Unlock()
	delete(v.instances, handle)
}

// DeviceIsSuitable implements interface
func (v *VulkanRenderer) DeviceIsSuitable(device vk.PhysicalDevice) (bool, string) {
	extensions, err := deviceExtensions(device)
	if err != nil {
		return false, "device extension query failed: " + err.Error()
	}

	available := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		available[ext] = true
	}
	for _, required := range v.requiredDeviceExtensions() {
		if !available[required] {
			return false, "missing device extension " + required
		}
	}
	return true, ""
}

// Destroy implements interface
func (v *VulkanRenderer) Destroy() {
	vk.DeviceWaitIdle(v.logicalDevice)

	if v.frames != nil {
		v.frames.WaitIdle()
		for slot := range v.retired {
			v.releaseRetired(uint64(slot))
		}
	}

	if v.assets != nil {
		v.assets.Close()
	}

	for _, shader := range v.shaders {
		shader.Destroy()
	}

	v.resourceLock.Lock()
	for _, rs := range v.resources {
		rs.Destroy()
	}
	v.resources = nil
	v.resourceLock.Unlock()

	if v.fallback != nil {
		v.fallback.Destroy()
	}

	if v.sync != nil {
		v.sync.Destroy()
	}

	if v.present != nil {
		v.present.Destroy()
	}

	vk.DestroySampler(v.logicalDevice, v.sampler, nil)

	vk.DestroyPipeline(v.logicalDevice, v.pipeline, nil)
	vk.DestroyPipelineCache(v.logicalDevice, v.pipelineCache, nil)
	vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)
	vkr.DestroyDescriptorSetLayouts(v.logicalDevice, v.descriptorSetLayouts)
	vk.DestroyRenderPass(v.logicalDevice, v.renderPass, nil)

	if v.pool != nil {
		v.pool.Destroy()
	}

	if v.sourceCloser != nil {
		v.sourceCloser.Close()
	}

	vk.DestroyDevice(v.logicalDevice, nil)
}

// resourceSet is the device resident form of one loaded asset: mesh
// buffers, texture, per swapchain image uniform slots, instance attribute
// buffers and descriptor sets.
type resourceSet struct {
	Destroyable

	id     string
	device vk.Device

	indexCount   uint32
	vertexBuffer *vkr.Buffer
	indexBuffer  *vkr.Buffer

	// texture is nil for mesh only resources, those sample the shared
	// fallback texture and must not release it.
	texture *vkr.Image

	// metrics carries the opaque font metrics blob for font atlases.
	metrics []byte

	uniforms       *vkr.UniformRing
	descriptorSets []vk.DescriptorSet

	instanceBuffers    []*vkr.Buffer
	instanceCapacities []int
	drawCounts         []uint32

	destroyed bool
}

// Destroyed reports whether the set's device objects are gone.
func (rs *resourceSet) Destroyed() bool {
	return rs.destroyed
}

// Release implements loader.Resident.
func (rs *resourceSet) Release() {
	rs.Destroy()
}

// Destroy implements interface
func (rs *resourceSet) Destroy() {
	if rs.destroyed {
		return
	}
	rs.destroyed = true

	for _, b := range rs.instanceBuffers {
		if b != nil {
			b.Release()
		}
	}
	rs.instanceBuffers = nil

	if rs.uniforms != nil {
		rs.uniforms.Release()
	}
	if rs.texture != nil {
		rs.texture.Release()
	}
	if rs.indexBuffer != nil {
		rs.indexBuffer.Release()
	}
	if rs.vertexBuffer != nil {
		rs.vertexBuffer.Release()
	}
}
