/*
Package session coordinates edits of stored layouts.

Manager serializes load-modify-save cycles per layout id, optionally across
replicas through a ports.DistributedLocker. Controller is the single-user
editing loop: it keeps the committed layout, the selection and a pending drag
preview that can be committed or cancelled.
*/
package session
