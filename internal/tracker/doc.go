// Package tracker reconciles locally recorded jobs with the NGC batch
// cluster by polling job status until completion.
package tracker
