// Command nemoctl submits NeMo machine translation training jobs to the
// NGC batch cluster and runs punctuation/capitalization inference locally.
package main
