package notifications

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

var _ json.Marshaler = &Data{}

// Errors for JSON marshaling.
var (
	// errMarshalFailed indicates a failure to marshal notification data to JSON.
	errMarshalFailed = errors.New("failed to marshal notification data")
)

// jsonMap is a type alias for a JSON-compatible map.
type jsonMap = map[string]any

// MarshalJSON implements json.Marshaler for Data.
func (d Data) MarshalJSON() ([]byte, error) {
	var report jsonMap

	if d.Report != nil {
		report = jsonMap{
			"scanned": marshalReports(d.Report.Scanned()),
			"updated": marshalReports(d.Report.Updated()),
			"fresh":   marshalReports(d.Report.Fresh()),
			"failed":  marshalReports(d.Report.Failed()),
			"skipped": marshalReports(d.Report.Skipped()),
		}
	}

	data := jsonMap{
		"report": report,
		"title":  d.Title,
		"host":   d.Host,
	}

	if d.Error != "" {
		data["error"] = d.Error
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal notification data to JSON")

		return nil, fmt.Errorf("%w: %w", errMarshalFailed, err)
	}

	return bytes, nil
}

// marshalReports converts candidate reports to JSON-compatible maps.
func marshalReports(reports []types.CandidateReport) []jsonMap {
	jsonReports := make([]jsonMap, len(reports))

	for i, report := range reports {
		candidate := report.Candidate()

		jsonReports[i] = jsonMap{
			"app":       candidate.AppName,
			"image":     candidate.RegistryURL,
			"parameter": candidate.ParameterName,
			"path":      candidate.SourcePath,
			"latestTag": report.LatestTag(),
			"state":     report.State(),
		}

		if errorMessage := report.Error(); errorMessage != "" {
			jsonReports[i]["error"] = errorMessage
		}
	}

	return jsonReports
}
