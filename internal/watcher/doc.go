// Package watcher reports changes to a fixed set of input files, such as
// the benchmark archive and the description document.
//
// Parent directories are watched with fsnotify so that editors and
// downloaders that replace a file by rename are still seen. When fsnotify
// is unavailable the watcher falls back to polling file metadata.
//
// Events are debounced so that a download or save that touches a file
// many times yields one batch:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, []string{archive, descriptions}) }()
//	for batch := range w.Events() {
//	    rebuild(batch)
//	}
package watcher
