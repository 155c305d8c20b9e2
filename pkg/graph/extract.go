package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/common"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
)

// ErrExtraction matches every *ExtractionError.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports that the oracle output for a chunk could not be
// turned into elements. Chunk is -1 for text that is not part of a document.
type ExtractionError struct {
	Chunk int
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Chunk < 0 {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction of chunk %d failed: %v", e.Chunk, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

type extractEntity struct {
	Name        string `json:"name" jsonschema_description:"Name of the entity as it appears in the text"`
	Type        string `json:"type" jsonschema_description:"Entity type in upper case, e.g. PERSON or ORGANIZATION"`
	Description string `json:"description" jsonschema_description:"One sentence describing the entity using only the text"`
}

type extractRelationship struct {
	Source      string `json:"source" jsonschema_description:"Name of the source entity, as listed in entities"`
	Target      string `json:"target" jsonschema_description:"Name of the target entity, as listed in entities"`
	Type        string `json:"type" jsonschema_description:"Short relation type in camelCase, e.g. worksFor"`
	Description string `json:"description" jsonschema_description:"One sentence explaining the relationship"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text"`
}

// ExtractElements asks the oracle for the entities and relationships in text
// and validates them into elements. Invalid individual elements are dropped.
// A transport failure is an *ai.OracleCallError, unusable output an
// *ExtractionError.
func (g *GraphClient) ExtractElements(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	text string,
) ([]common.Element, error) {
	var res extractResponse
	err := ai.CompleteWithFormat(
		ctx,
		aiClient,
		g.policy,
		"extract",
		"extract_entities_and_relationships",
		"Extract entities and relationships from a provided text.",
		fmt.Sprintf(ai.ExtractPrompt, text),
		&res,
		ai.WithSystemPrompts(ai.ExtractSystemPrompt),
	)
	if err != nil {
		var oracleErr *ai.OracleCallError
		if errors.As(err, &oracleErr) && errors.Is(oracleErr.Err, ai.ErrUnparsableOutput) {
			return nil, &ExtractionError{Chunk: -1, Err: oracleErr.Err}
		}
		return nil, err
	}

	return res.elements(), nil
}

func (r extractResponse) elements() []common.Element {
	elements := make([]common.Element, 0, len(r.Entities)+len(r.Relationships))
	for _, e := range r.Entities {
		el := common.NewEntityElement(common.Entity{
			ID:          util.NormalizeName(e.Name),
			Name:        util.CollapseWhitespace(e.Name),
			Type:        util.NormalizeName(e.Type),
			Description: strings.TrimSpace(e.Description),
		})
		if err := el.Validate(); err != nil {
			logger.Debug("[Graph] Dropping invalid entity", "name", e.Name, "err", err)
			continue
		}
		elements = append(elements, el)
	}
	for _, rel := range r.Relationships {
		el := common.NewRelationshipElement(common.Relationship{
			Source:      util.NormalizeName(rel.Source),
			Target:      util.NormalizeName(rel.Target),
			Type:        strings.TrimSpace(rel.Type),
			Description: strings.TrimSpace(rel.Description),
		})
		if err := el.Validate(); err != nil {
			logger.Debug("[Graph] Dropping invalid relationship", "source", rel.Source, "target", rel.Target, "err", err)
			continue
		}
		elements = append(elements, el)
	}
	return elements
}

// ExtractQueryEntities asks the oracle for the entities and relations named
// in a query, using the labeled text format. Entity names are canonicalized
// like extracted entity ids.
func (g *GraphClient) ExtractQueryEntities(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	query string,
) ([]string, []common.Triple, error) {
	out, err := ai.Complete(
		ctx,
		aiClient,
		g.policy,
		"extract_query",
		fmt.Sprintf(ai.QueryEntitiesPrompt, query),
		ai.WithSystemPrompts(ai.ExtractSystemPrompt),
	)
	if err != nil {
		return nil, nil, err
	}

	names, triples := ParseLabeledSections(out)
	entities := make([]string, 0, len(names))
	for _, n := range names {
		if id := util.NormalizeName(n); id != "" {
			entities = append(entities, id)
		}
	}
	for i := range triples {
		triples[i].Source = util.NormalizeName(triples[i].Source)
		triples[i].Target = util.NormalizeName(triples[i].Target)
	}

	return entities, triples, nil
}
