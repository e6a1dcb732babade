package ui

import (
	"context"
	"fmt"
	"image"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// FolderOpener opens the screenshot directory on the host.
type FolderOpener interface {
	OpenFolder() error
}

// WatchApp is the desktop shell: camera list, controls and live view.
type WatchApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	cameras *service.CameraService
	monitor *service.Monitor
	folder  FolderOpener
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	statuses    []dto.CameraStatus
	cameraList  *widget.List
	nameEntry   *widget.Entry
	sourceEntry *widget.Entry
	videoCanvas *canvas.Image
	statusLabel *widget.Label
}

func CreateApp(cameras *service.CameraService, monitor *service.Monitor, folder FolderOpener, logger *logger.Logger) *WatchApp {
	a := app.New()
	w := a.NewWindow("Helmet Watch")

	w.Resize(fyne.NewSize(1200, 700))

	ctx, cancel := context.WithCancel(context.Background())
	return &WatchApp{
		fyneApp: a,
		mainWin: w,
		cameras: cameras,
		monitor: monitor,
		folder:  folder,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (a *WatchApp) Run() {
	a.statuses = a.cameras.List()

	a.cameraList = widget.NewList(
		func() int { return len(a.statuses) },
		func() fyne.CanvasObject { return widget.NewLabel("camera") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			s := a.statuses[id]
			o.(*widget.Label).SetText(fmt.Sprintf("%s [%s]", s.Name, s.State))
		},
	)
	a.cameraList.OnSelected = a.onCameraSelected

	a.nameEntry = widget.NewEntry()
	a.nameEntry.SetPlaceHolder("Camera name")
	a.sourceEntry = widget.NewEntry()
	a.sourceEntry.SetPlaceHolder("Device index or stream URL")

	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(640, 480))

	a.statusLabel = widget.NewLabel("Stopped")

	controls := container.NewGridWithColumns(2,
		widget.NewButtonWithIcon("Add", theme.ContentAddIcon(), a.addCamera),
		widget.NewButtonWithIcon("Edit", theme.DocumentCreateIcon(), a.editCamera),
		widget.NewButtonWithIcon("Remove", theme.ContentRemoveIcon(), a.removeCamera),
		widget.NewButtonWithIcon("Open Folder", theme.FolderOpenIcon(), a.openFolder),
		widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), a.startCameras),
		widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), a.stopCameras),
	)

	sidebar := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Cameras", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewSeparator(),
		),
		container.NewVBox(
			widget.NewSeparator(),
			a.nameEntry,
			a.sourceEntry,
			controls,
		),
		nil, nil,
		a.cameraList,
	)

	videoContainer := container.NewBorder(a.statusLabel, nil, nil, nil, a.videoCanvas)

	split := container.NewHSplit(
		container.NewPadded(sidebar),
		container.NewPadded(videoContainer),
	)
	split.SetOffset(0.3)

	a.mainWin.SetContent(split)
	a.mainWin.SetCloseIntercept(func() {
		a.cancel()
		a.cameras.StopAll()
		a.mainWin.Close()
	})

	go a.runPlayerLoop()

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

// runPlayerLoop shows every monitoring result until the window closes.
func (a *WatchApp) runPlayerLoop() {
	results := a.monitor.Subscribe()
	defer a.monitor.Unsubscribe(results)

	for {
		select {
		case <-a.ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			var frame image.Image
			if result.Frame != nil {
				frame = result.Frame
			}
			status := fmt.Sprintf("%s: %d detection(s)", result.Camera, len(result.Predictions))
			if result.Alert {
				status += " - ALERT, screenshot saved"
			}
			fyne.Do(func() {
				a.videoCanvas.Image = frame
				a.videoCanvas.Refresh()
				a.statusLabel.SetText(status)
			})
		}
	}
}

func (a *WatchApp) refreshList() {
	a.statuses = a.cameras.List()
	a.cameraList.Refresh()
}

func (a *WatchApp) onCameraSelected(id widget.ListItemID) {
	if id < 0 || id >= len(a.statuses) {
		return
	}
	s := a.statuses[id]
	a.nameEntry.SetText(s.Name)
	a.sourceEntry.SetText(s.Source)

	if err := a.cameras.Select(s.Name); err != nil {
		dialog.ShowError(err, a.mainWin)
	}
}

func (a *WatchApp) addCamera() {
	if err := a.cameras.Add(a.nameEntry.Text, a.sourceEntry.Text); err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}
	a.refreshList()
}

func (a *WatchApp) editCamera() {
	selected := a.monitor.Selected()
	if selected == "" {
		dialog.ShowInformation("Edit camera", "Select a camera first.", a.mainWin)
		return
	}
	if err := a.cameras.Edit(selected, a.nameEntry.Text, a.sourceEntry.Text); err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}
	a.refreshList()
}

func (a *WatchApp) removeCamera() {
	selected := a.monitor.Selected()
	if selected == "" {
		dialog.ShowInformation("Remove camera", "Select a camera first.", a.mainWin)
		return
	}
	if err := a.cameras.Remove(selected); err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}
	a.cameraList.UnselectAll()
	a.refreshList()
}

func (a *WatchApp) startCameras() {
	started, err := a.cameras.StartAll(a.ctx)
	if err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}
	a.statusLabel.SetText(fmt.Sprintf("Started %d camera(s)", started))
	a.refreshList()
}

func (a *WatchApp) stopCameras() {
	a.cameras.StopAll()
	a.videoCanvas.Image = nil
	a.videoCanvas.Refresh()
	a.statusLabel.SetText("Stopped")
	a.refreshList()
}

func (a *WatchApp) openFolder() {
	if err := a.folder.OpenFolder(); err != nil {
		a.logger.Error("Failed to open screenshot folder: %v", err)
		dialog.ShowError(err, a.mainWin)
	}
}
