// Package matching converts a waste listing into a ranked, explainable list
// of recycler candidates.
//
// Candidates are retrieved from the vector store by semantic similarity and
// re-ranked with a weighted combination of four sub-scores: material
// similarity (the raw vector-search score), geographic proximity, remaining
// capacity, and sustainability-goal overlap. Every reported score is rounded
// to a fixed presentation precision, and ranking uses the rounded final score
// so presentation ties are also ranking ties.
package matching
