package fitpool

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/fitpool/memutils"
	"github.com/vkngwrapper/fitpool/memutils/metadata"
)

// CalculateStatistics populates stats with the pool's current allocation and free region
// counts. Any data already in stats is cleared first.
func (p *Pool) CalculateStatistics(stats *memutils.DetailedStatistics) error {
	if err := p.checkInitialized(); err != nil {
		return err
	}

	p.logger.Debug("Pool::CalculateStatistics")

	stats.Clear()
	p.metadata.AddDetailedStatistics(stats)

	return nil
}

// BuildStatsString returns a json document describing the pool's totals. If detailedMap
// is true, the document also lists every region of the pool in address order.
//
// An uninitialized pool produces an empty json object.
func (p *Pool) BuildStatsString(detailedMap bool) string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	if p.isInitialized() {
		p.logger.Debug("Pool::BuildStatsString")

		var stats memutils.DetailedStatistics
		stats.Clear()
		p.metadata.AddDetailedStatistics(&stats)

		totalObj := obj.Name("Total").Object()
		printStatistics(&totalObj, &stats)
		totalObj.End()

		if detailedMap {
			poolObj := obj.Name("Pool").Object()
			p.metadata.BlockJsonData(&poolObj)
			p.printDetailedMapRegions(&poolObj)
			poolObj.End()
		}
	}

	obj.End()
	return string(writer.Bytes())
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("PoolBytes").Int(stats.PoolBytes)
	json.Name("DescriptorCount").Int(stats.DescriptorCount)
	json.Name("ReserveCount").Int(stats.ReserveCount)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
	if stats.UnusedRangeCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}

	json.Name("FragmentationRatio").Float64(stats.FragmentationRatio())
}

func (p *Pool) printDetailedMapRegions(json *jwriter.ObjectState) {
	arrayState := json.Name("Suballocations").Array()
	defer arrayState.End()

	_ = p.metadata.VisitAllRegions(
		func(handle metadata.BlockAllocationHandle, offset int, extent int, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			suballocType := metadata.SuballocationAllocated
			if free {
				suballocType = metadata.SuballocationFree
			}

			obj.Name("Offset").Int(offset)
			obj.Name("Type").String(suballocType.String())
			obj.Name("Size").Int(extent * p.quantum)

			return nil
		})
}
