package checks

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	"trustgate/internal/verification/models"
)

// RegistryClient is the outbound contract for official-registry lookups
// (business registry, tax authority). Concrete transports live outside the
// core; tests and local runs use StaticRegistry.
type RegistryClient interface {
	Lookup(ctx context.Context, name string) (found bool, err error)
}

// StaticRegistry answers lookups from a fixed set. Lookup is
// case-insensitive on the registered name.
type StaticRegistry map[string]bool

func (r StaticRegistry) Lookup(_ context.Context, name string) (bool, error) {
	found, ok := r[strings.ToLower(name)]
	return ok && found, nil
}

// RegistryLookup verifies the subject against an official registry.
type RegistryLookup struct {
	CheckName string
	Client    RegistryClient
}

func (c *RegistryLookup) Name() string { return c.CheckName }

func (c *RegistryLookup) Execute(ctx context.Context, subject models.Subject, _ []models.Document) (models.CheckResult, error) {
	found, err := c.Client.Lookup(ctx, subject.Name)
	if err != nil {
		return models.CheckResult{}, err
	}
	if !found {
		return models.CheckResult{Passed: false, Confidence: 0.9, Details: "no registry record found"}, nil
	}
	return models.CheckResult{Passed: true, Confidence: 0.9, Details: "record found in official registry"}, nil
}

// BlacklistSource reports whether a subject appears on a fraud or sanctions
// list.
type BlacklistSource interface {
	Listed(ctx context.Context, subjectName, email string) (bool, error)
}

// StaticBlacklist holds listed names and emails, lowercased.
type StaticBlacklist struct {
	Names  map[string]bool
	Emails map[string]bool
}

func (b *StaticBlacklist) Listed(_ context.Context, name, email string) (bool, error) {
	if b.Names[strings.ToLower(name)] {
		return true, nil
	}
	return b.Emails[strings.ToLower(email)], nil
}

// BlacklistCheck screens the subject against fraud and sanctions lists. A
// listing is a hard fail with full confidence.
type BlacklistCheck struct {
	Source BlacklistSource
}

func (c *BlacklistCheck) Name() string { return "blacklist" }

func (c *BlacklistCheck) Execute(ctx context.Context, subject models.Subject, _ []models.Document) (models.CheckResult, error) {
	listed, err := c.Source.Listed(ctx, subject.Name, subject.Email)
	if err != nil {
		return models.CheckResult{}, err
	}
	if listed {
		return models.CheckResult{Passed: false, Confidence: 1.0, Details: "subject appears on a blacklist"}, nil
	}
	return models.CheckResult{Passed: true, Confidence: 1.0, Details: "not found in any blacklist"}, nil
}

// AddressCheck verifies the profile address and requires a matching
// proof-of-address document on file.
type AddressCheck struct{}

func (c *AddressCheck) Name() string { return "address" }

func (c *AddressCheck) Execute(_ context.Context, subject models.Subject, documents []models.Document) (models.CheckResult, error) {
	if strings.TrimSpace(subject.Address) == "" {
		return models.CheckResult{Passed: false, Confidence: 0.92, Details: "no address on profile"}, nil
	}
	for _, doc := range documents {
		if doc.Type == models.DocumentTypeProofOfAddress {
			return models.CheckResult{Passed: true, Confidence: 0.92, Details: "address supported by proof-of-address document"}, nil
		}
	}
	return models.CheckResult{Passed: false, Confidence: 0.92, Details: "no proof-of-address document on file"}, nil
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{6,18}$`)

// ContactCheck validates reachability of the subject's contact details.
type ContactCheck struct{}

func (c *ContactCheck) Name() string { return "contact" }

func (c *ContactCheck) Execute(_ context.Context, subject models.Subject, _ []models.Document) (models.CheckResult, error) {
	if !govalidator.IsEmail(subject.Email) {
		return models.CheckResult{Passed: false, Confidence: 0.87, Details: "invalid email address"}, nil
	}
	if !phonePattern.MatchString(subject.Phone) {
		return models.CheckResult{Passed: false, Confidence: 0.87, Details: "invalid phone number"}, nil
	}
	return models.CheckResult{Passed: true, Confidence: 0.87, Details: "contact information verified"}, nil
}

// DocumentAuthenticityCheck reads the OCR confidence recorded on processed
// documents and fails when any mandatory document fell below the threshold
// or was never processed.
type DocumentAuthenticityCheck struct {
	MinConfidence float64
}

func (c *DocumentAuthenticityCheck) Name() string { return "document_authenticity" }

func (c *DocumentAuthenticityCheck) Execute(_ context.Context, subject models.Subject, documents []models.Document) (models.CheckResult, error) {
	if len(documents) == 0 {
		return models.CheckResult{Passed: false, Confidence: 0, Details: "no documents on file"}, nil
	}
	min := c.MinConfidence
	if min <= 0 {
		min = 0.7
	}
	lowest := 1.0
	for _, doc := range documents {
		if doc.ProcessingStatus == models.ProcessingUploaded {
			return models.CheckResult{Passed: false, Confidence: 0.5, Details: "document not yet processed: " + doc.ID.String()}, nil
		}
		conf, err := strconv.ParseFloat(doc.ExtractedFields["ocr_confidence"], 64)
		if err != nil {
			conf = 0
		}
		if conf < lowest {
			lowest = conf
		}
	}
	if lowest < min {
		return models.CheckResult{Passed: false, Confidence: lowest, Details: "document confidence below threshold"}, nil
	}
	return models.CheckResult{Passed: true, Confidence: lowest, Details: "all documents passed authenticity screening"}, nil
}
