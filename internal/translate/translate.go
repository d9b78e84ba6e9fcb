// Package translate implements TranslateBrowsePathsToNodeIds: resolving a
// starting node plus a relative path of literal browse names to a target
// NodeId.
package translate

import (
	"math"

	"github.com/gopcua/opcua/ua"

	"github.com/ioansiran/opcua-server/internal/addrspace"
	"github.com/ioansiran/opcua-server/internal/metrics"
)

// Service resolves browse paths against a fixed address-space Index.
type Service struct {
	index *addrspace.Index
}

// NewService builds a translate Service over index.
func NewService(index *addrspace.Index) *Service {
	return &Service{index: index}
}

// Translate resolves one BrowsePathResult per entry in paths. Reference-type
// filtering of individual path elements is out of scope; only the literal
// browse-name match is performed, per the element's TargetName.
func (s *Service) Translate(paths []*ua.BrowsePath) []*ua.BrowsePathResult {
	results := make([]*ua.BrowsePathResult, len(paths))
	for i, p := range paths {
		results[i] = s.translateOne(p)
		metrics.TranslateRequestsTotal.WithLabelValues(results[i].StatusCode.Error()).Inc()
	}
	return results
}

func (s *Service) translateOne(path *ua.BrowsePath) *ua.BrowsePathResult {
	current := s.index.LookupByNodeID(path.StartingNode)
	if current == nil {
		return &ua.BrowsePathResult{StatusCode: ua.StatusBadNoMatch}
	}

	if path.RelativePath == nil {
		return &ua.BrowsePathResult{StatusCode: ua.StatusBadNoMatch}
	}

	for _, elem := range path.RelativePath.Elements {
		next := s.index.LookupChildByBrowseName(current, elem.TargetName.Name)
		if next == nil {
			return &ua.BrowsePathResult{StatusCode: ua.StatusBadNoMatch}
		}
		current = next
	}

	return &ua.BrowsePathResult{
		StatusCode: ua.StatusOK,
		Targets: []*ua.BrowsePathTarget{
			{
				TargetID:          &ua.ExpandedNodeID{NodeID: current.NodeID},
				RemainingPathIndex: math.MaxUint32,
			},
		},
	}
}
