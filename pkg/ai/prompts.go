package ai

const ExtractSystemPrompt = `You are a helpful assistant that extracts entities and relations from text for a knowledge graph.`

const ExtractPrompt = `
# Task Context
Extract the entities and the relationships between them from the text below.

# Detailed Task Description & Rules
- An entity is a named person, organization, location, event, concept or object.
- Give every entity a short, stable name as it appears in the text. Use the same name every time the entity is mentioned.
- Give every entity a type in upper case (e.g. PERSON, ORGANIZATION, LOCATION, CONCEPT).
- Describe every entity in one sentence using only information from the text.
- A relationship connects two entities that were both extracted. Use the entity names as source and target.
- Give every relationship a short relation type in camelCase (e.g. worksFor, locatedIn, relatedTo) and a one sentence description.
- Do not invent information that is not contained in the text.

# Text
%s
`

const QueryEntitiesPrompt = `
Extract entities and relations from the following text.
Format the output exactly as follows:

Entities:
- Entity1
- Entity2

Relations:
- Entity1, relation, Entity2
- Entity3, relation, Entity4

Text: %s
`

const SummarizeSystemPrompt = `You are a helpful assistant that summarizes text.`

const SummarizeEntityPrompt = `
Summarize what is known about the entity "%s" in two or three sentences.

# Known facts
%s
`

const SummarizeRelationshipPrompt = `
Summarize the relationship between "%s" and "%s" in one or two sentences.

# Known facts
%s
`

const SummarizeCommunityPrompt = `
The following descriptions belong to one community of closely connected entities in a knowledge graph.
Write a single coherent summary of the community: its main entities, how they relate and what the community is about.

# Descriptions
%s
`

const QuerySystemPrompt = `You are a helpful assistant that answers questions based on provided context.`

const QueryPrompt = "Context: %s\n\nQuery: %s"
