// Package product defines the types shared by every stage of a specification scrape:
// the section map produced by the extractor, the immutable Result built by the
// assembler, the JSON Record written by the sink, and the error taxonomy that decides
// which failures end a run.
package product
