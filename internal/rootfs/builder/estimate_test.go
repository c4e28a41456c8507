package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTarballSizeGzipMultipliesByThree(t *testing.T) {
	assert.EqualValues(t, 3000, EstimateTarballSize(1000, CompressionGzip))
}

func TestEstimateTarballSizeUncompressedUnchanged(t *testing.T) {
	assert.EqualValues(t, 1000, EstimateTarballSize(1000, CompressionNone))
}

func TestEstimateDirectorySizeAppliesFloor(t *testing.T) {
	assert.EqualValues(t, directoryContentOverheadFloor, EstimateDirectorySize(1000))
}

func TestEstimateDirectorySizeAddsFiftyPercent(t *testing.T) {
	const content = int64(100 << 20)
	assert.EqualValues(t, content+content/2, EstimateDirectorySize(content))
}

func TestEstimateRegistrySizeUnknownUsesDefault(t *testing.T) {
	assert.EqualValues(t, registryDefaultSizeEstimate, EstimateRegistrySize(nil))
}

func TestEstimateRegistrySizeSumsKnownLayers(t *testing.T) {
	assert.EqualValues(t, 60, EstimateRegistrySize([]int64{10, 20, 30}))
}

func TestHeadroomUsesTenPercentWhenAboveFloor(t *testing.T) {
	const total = uint64(10) << 30 // 10 GiB, 10% = 1 GiB > 256 MiB floor
	assert.EqualValues(t, total/10, headroom(total))
}

func TestHeadroomUsesFloorWhenTenPercentBelowIt(t *testing.T) {
	const total = uint64(512) << 20 // 512 MiB, 10% = 51.2 MiB < 256 MiB floor
	assert.EqualValues(t, 256<<20, headroom(total))
}
