package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/math"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/software"
)

// testScene binds three instanced-mesh groups in front of the camera:
// groups 0 and 2 share a two-submesh mesh, group 1 uses a single-submesh one.
func testScene() *metadata.SceneBinding {
	boxAt := func(x float32) math.Extents3D {
		return math.Extents3D{
			Min: math.Vec3{X: x - 0.5, Y: -0.5, Z: -10.5},
			Max: math.Vec3{X: x + 0.5, Y: 0.5, Z: -9.5},
		}
	}
	return &metadata.SceneBinding{
		Groups: []geometry.InstancedMesh{
			{Mesh: 0, BaseInstance: 0, InstanceCount: 2},
			{Mesh: 1, BaseInstance: 2, InstanceCount: 1},
			{Mesh: 0, BaseInstance: 3, InstanceCount: 4},
		},
		Meshes: []geometry.Mesh{
			{SubmeshOffset: 0, SubmeshCount: 2},
			{SubmeshOffset: 2, SubmeshCount: 1},
		},
		Submeshes: []geometry.Submesh{
			{IndexOffset: 0, IndexCount: 36, Material: -1},
			{IndexOffset: 36, IndexCount: 12, Material: 0},
			{IndexOffset: 48, IndexCount: 24, Material: 1},
		},
		GroupBounds:     []math.Extents3D{boxAt(-2), boxAt(0), boxAt(2)},
		MaxSubmeshCount: 2,
	}
}

func testCamera() CameraState {
	return CameraState{
		View:           math.NewMat4Identity(),
		Projection:     math.NewMat4Perspective(math.DegToRad(90), 1, 0.1, 100),
		SceneTransform: math.NewMat4Identity(),
		ViewportWidth:  100,
		ViewportHeight: 100,
	}
}

func newTestRenderer(t *testing.T, backend RendererBackend, options Options) *Renderer {
	t.Helper()
	core.MetricsInitialize()
	r := New(backend, culling.NewCuller(culling.CullerConfig{MinInstancedMeshes: 1}), options)
	require.NoError(t, r.Initialize("test", 100, 100))
	require.NoError(t, r.BindScene(testScene()))
	return r
}

func drawOne(t *testing.T, r *Renderer) FrameReport {
	t.Helper()
	report, err := r.DrawFrame(&metadata.RenderPacket{}, testCamera())
	require.NoError(t, err)
	return report
}

func TestDirectPathOcclusionDisabled(t *testing.T) {
	backend := software.NewBackend(software.Config{})
	r := newTestRenderer(t, backend, Options{FrameBudget: -1})

	for i := 0; i < 5; i++ {
		report := drawOne(t, r)
		assert.False(t, report.Indirect)
		assert.Equal(t, 3, report.Candidates)
		// Without occlusion the final visible set is the candidate set.
		assert.Equal(t, []int32{0, 1, 2}, report.Visible)
		assert.Equal(t, 3, report.Drawn)
	}
	assert.Equal(t, []int32{0, 1, 2}, backend.DrawnGroups())
}

func TestDirectPathOcclusionResultsTrailByPipelineDepth(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityOcclusionQuery,
	})
	backend.SetOccluded(1)
	r := newTestRenderer(t, backend, Options{OcclusionEnabled: true, FrameBudget: -1})

	for i := 0; i < pipeline.MaxFramesInFlight; i++ {
		report := drawOne(t, r)
		// Warm-up frames have no readable results and degrade to drawing
		// every candidate.
		assert.Equal(t, []int32{0, 1, 2}, report.Visible, "frame %d", i)
	}
	for i := 0; i < 3; i++ {
		report := drawOne(t, r)
		assert.Equal(t, []int32{0, 2}, report.Visible)
		assert.Equal(t, 2, report.Drawn)
	}
}

func TestDirectPathVisualizationSkipsReadback(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityOcclusionQuery,
	})
	backend.SetOccluded(0, 1, 2)
	r := newTestRenderer(t, backend, Options{
		OcclusionEnabled:       true,
		OcclusionVisualization: true,
		FrameBudget:            -1,
	})

	for i := 0; i < 6; i++ {
		report := drawOne(t, r)
		// Proxies draw visibly and no results apply, fully occluded or not.
		assert.Equal(t, []int32{0, 1, 2}, report.Visible)
	}
	assert.Greater(t, backend.ProxyDraws(), 0)
}

func TestDirectPathZeroBudgetDrawsNothing(t *testing.T) {
	backend := software.NewBackend(software.Config{})
	r := newTestRenderer(t, backend, Options{FrameBudget: 0})

	report := drawOne(t, r)
	assert.Equal(t, []int32{0, 1, 2}, report.Visible, "visibility still resolves")
	assert.Equal(t, 0, report.Drawn)
	assert.Empty(t, backend.DrawnGroups())
}

func TestOcclusionDegradesWithoutCapability(t *testing.T) {
	backend := software.NewBackend(software.Config{})
	r := newTestRenderer(t, backend, Options{OcclusionEnabled: true, FrameBudget: -1})

	for i := 0; i < 5; i++ {
		report := drawOne(t, r)
		assert.Equal(t, []int32{0, 1, 2}, report.Visible)
	}
	assert.Zero(t, backend.ProxyDraws(), "no proxies without query support")
}

func TestIndirectPathRecordsOneDrawPerVisiblePair(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityIndirectCommandGeneration,
	})
	r := newTestRenderer(t, backend, Options{FrameBudget: -1})

	report := drawOne(t, r)
	assert.True(t, report.Indirect)
	// Groups 0 and 2 carry two submeshes each, group 1 carries one.
	assert.Equal(t, 5, report.Drawn)
	assert.Equal(t, 5, backend.ExecutedCommands())
}

func TestIndirectKernelMatchesHostPredicate(t *testing.T) {
	predicate := culling.NewVisibilityPredicate(culling.VisibilityOptions{
		ContributionTestEnabled: true,
		MinContributionArea:     4,
	}, nil)
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityIndirectCommandGeneration,
		Predicate:    predicate,
	})
	r := newTestRenderer(t, backend, Options{FrameBudget: -1})

	camera := testCamera()
	report, err := r.DrawFrame(&metadata.RenderPacket{}, camera)
	require.NoError(t, err)
	require.True(t, report.Indirect)

	// Recompute the expected draw count on the host with the same predicate
	// and camera state.
	scene := testScene()
	viewProjection := camera.Projection.Mul(camera.View.Mul(camera.SceneTransform))
	input := culling.VisibilityInput{
		ViewProjection: viewProjection,
		Frustum:        math.NewFrustumFromMatrix(viewProjection),
		ScreenWidth:    camera.ViewportWidth,
		ScreenHeight:   camera.ViewportHeight,
	}
	expected := 0
	for g, group := range scene.Groups {
		if predicate.Visible(scene.GroupBounds[g], input) {
			expected += int(scene.Meshes[group.Mesh].SubmeshCount)
		}
	}
	assert.Equal(t, expected, report.Drawn)
}

func TestIndirectCommandSlotsAreExclusive(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityIndirectCommandGeneration,
	})
	core.MetricsInitialize()
	require.NoError(t, backend.Initialize("test", 100, 100))
	scene := testScene()
	require.NoError(t, backend.BindScene(scene))

	list, err := metadata.NewCommandList(uint32(scene.GroupCount()), scene.MaxSubmeshCount)
	require.NoError(t, err)

	camera := testCamera()
	viewProjection := camera.Projection.Mul(camera.View)
	input := culling.VisibilityInput{
		ViewProjection: viewProjection,
		Frustum:        math.NewFrustumFromMatrix(viewProjection),
		ScreenWidth:    100,
		ScreenHeight:   100,
	}
	require.NoError(t, backend.GenerateCommands(0, input, list))

	for g, group := range scene.Groups {
		mesh := scene.Meshes[group.Mesh]
		for slot := uint32(0); slot < list.MaxSubmeshes; slot++ {
			i := list.Slot(uint32(g), slot)
			if slot >= mesh.SubmeshCount {
				// Slots past the mesh's real submesh count stay zeroed.
				assert.Zero(t, list.Executed[i])
				assert.Zero(t, list.Commands[i].IndexCount)
				continue
			}
			submesh := scene.Submeshes[mesh.SubmeshOffset+slot]
			assert.Equal(t, uint32(1), list.Executed[i])
			assert.Equal(t, submesh.IndexCount, list.Commands[i].IndexCount)
			assert.Equal(t, submesh.IndexOffset, list.Commands[i].FirstIndex)
			assert.Equal(t, group.InstanceCount, list.Commands[i].InstanceCount)
			assert.Equal(t, group.BaseInstance, list.Commands[i].FirstInstance)
		}
	}
}

func TestIndirectStaleListDegradesToDirect(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityIndirectCommandGeneration,
	})
	core.MetricsInitialize()
	r := New(backend, culling.NewCuller(culling.CullerConfig{MinInstancedMeshes: 1}), Options{FrameBudget: -1})
	require.NoError(t, r.Initialize("test", 100, 100))

	// No scene was ever bound: the command list is missing and the indirect
	// pass must degrade to the (empty) direct path instead of failing the
	// frame.
	report, err := r.DrawFrame(&metadata.RenderPacket{}, testCamera())
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, report.Drawn)
}

func TestPipelineHoldsFramesUntilDeviceCompletes(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities:     metadata.CapabilityOcclusionQuery,
		ManualCompletion: true,
	})
	r := newTestRenderer(t, backend, Options{OcclusionEnabled: true, FrameBudget: -1})

	for i := 0; i < pipeline.MaxFramesInFlight; i++ {
		drawOne(t, r)
	}
	assert.Equal(t, pipeline.MaxFramesInFlight, r.Pipeline().InFlight())
	assert.Equal(t, pipeline.MaxFramesInFlight, backend.PendingFrames())

	// A further frame would block on the limiter until the device catches
	// up; completing one frame admits exactly one more.
	require.True(t, backend.CompleteOldest())
	assert.Equal(t, pipeline.MaxFramesInFlight-1, r.Pipeline().InFlight())

	drawOne(t, r)
	backend.CompleteAll()
	assert.Zero(t, r.Pipeline().InFlight())
}

func TestSetOptionsSwapsBetweenFrames(t *testing.T) {
	backend := software.NewBackend(software.Config{})
	r := newTestRenderer(t, backend, Options{FrameBudget: -1})

	report := drawOne(t, r)
	assert.Equal(t, 3, report.Drawn)

	r.SetOptions(Options{FrameBudget: 0})
	report = drawOne(t, r)
	assert.Equal(t, 0, report.Drawn)
}

func TestRebindResizesRotation(t *testing.T) {
	backend := software.NewBackend(software.Config{
		Capabilities: metadata.CapabilityOcclusionQuery,
	})
	r := newTestRenderer(t, backend, Options{OcclusionEnabled: true, FrameBudget: -1})

	for i := 0; i < pipeline.MaxFramesInFlight+1; i++ {
		drawOne(t, r)
	}

	// A reload re-sizes every rotation buffer; visibility degrades to the
	// candidate set until the rotation refills.
	require.NoError(t, r.BindScene(testScene()))
	for i := 0; i < pipeline.MaxFramesInFlight; i++ {
		report := drawOne(t, r)
		assert.Equal(t, []int32{0, 1, 2}, report.Visible)
	}
}

func TestFrameBudgetCutsDrawsShort(t *testing.T) {
	backend := software.NewBackend(software.Config{})
	r := newTestRenderer(t, backend, Options{FrameBudget: time.Nanosecond})

	report := drawOne(t, r)
	// The clock check runs before each draw; with a one nanosecond budget
	// at most a few draws land and the rest of the set is abandoned.
	assert.LessOrEqual(t, report.Drawn, len(report.Visible))
}
