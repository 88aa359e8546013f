// Package textutil holds the string helpers applied at the channel boundary:
// markdown emphasis stripping before synthesis and job id normalization.
package textutil
