//go:build gui
// +build gui

// Package mainwindow provides the desktop window: pick an image, see the
// heuristic verdict, label samples, train, and take the quiz.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"ripecheck/internal/config"
	"ripecheck/internal/learn"
	"ripecheck/internal/logger"
	"ripecheck/internal/quiz"
	"ripecheck/internal/ripeness"
	"ripecheck/internal/version"
)

const prefKeyLastDir = "lastDirectory"

// LoadFunc loads the image at path as a preview of the given width.
type LoadFunc func(path string, width int) (*image.NRGBA, error)

// MainWindow is the application window.
type MainWindow struct {
	fyne.Window
	app      fyne.App
	cfg      config.Config
	load     LoadFunc
	analyzer *ripeness.Analyzer
	session  *learn.Session

	preview    *canvas.Image
	swatch     *canvas.Rectangle
	hueLabel   *widget.Label
	valueLabel *widget.Label
	verdict    *widget.Label
	prediction *widget.Label
	status     *widget.Label
	trainBtn   *widget.Button

	questions  []quiz.Question
	answers    map[string]*widget.RadioGroup
	quizResult *widget.Label
}

// New creates the main window with a fresh training session.
func New(fyneApp fyne.App, cfg config.Config, load LoadFunc) *MainWindow {
	win := fyneApp.NewWindow("Banana Ripeness Check")

	mw := &MainWindow{
		Window:    win,
		app:       fyneApp,
		cfg:       cfg,
		load:      load,
		analyzer:  cfg.Analyzer(),
		session:   learn.NewSession("desktop", cfg.LearnOptions()),
		questions: quiz.DefaultQuestions(),
		answers:   make(map[string]*widget.RadioGroup),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.Resize(fyne.NewSize(720, 640))

	return mw
}

func (mw *MainWindow) setupUI() {
	mw.preview = canvas.NewImageFromImage(nil)
	mw.preview.FillMode = canvas.ImageFillContain
	mw.preview.SetMinSize(fyne.NewSize(float32(mw.cfg.PreviewWidth), float32(mw.cfg.PreviewWidth)*0.75))

	mw.swatch = canvas.NewRectangle(ripeness.LabelUncertain.Color())
	mw.swatch.SetMinSize(fyne.NewSize(24, 24))
	mw.hueLabel = widget.NewLabel("--")
	mw.valueLabel = widget.NewLabel("--")
	mw.verdict = widget.NewLabel("--")
	mw.prediction = widget.NewLabel("--")
	mw.status = widget.NewLabel(mw.session.Status())

	stats := widget.NewForm(
		widget.NewFormItem("Mean hue", mw.hueLabel),
		widget.NewFormItem("Mean value", mw.valueLabel),
		widget.NewFormItem("Heuristic", container.NewHBox(mw.swatch, mw.verdict)),
		widget.NewFormItem("Model", mw.prediction),
	)

	classButtons := container.NewHBox()
	for _, c := range learn.Classes() {
		class := c
		classButtons.Add(widget.NewButton(labelFor(class), func() { mw.onAddSample(class) }))
	}
	mw.trainBtn = widget.NewButton("Train", mw.onTrain)
	mw.trainBtn.Importance = widget.HighImportance

	check := container.NewVBox(
		widget.NewButton("Open Image...", mw.onOpenImage),
		mw.preview,
		stats,
		widget.NewSeparator(),
		classButtons,
		mw.trainBtn,
		mw.status,
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Check", container.NewVScroll(check)),
		container.NewTabItem("Quiz", mw.quizTab()),
	)
	mw.SetContent(tabs)
}

func (mw *MainWindow) quizTab() fyne.CanvasObject {
	box := container.NewVBox()
	for _, q := range mw.questions {
		options := make([]string, len(q.Choices))
		copy(options, q.Choices)
		group := widget.NewRadioGroup(options, nil)
		mw.answers[q.ID] = group
		box.Add(widget.NewLabelWithStyle(q.Prompt, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
		box.Add(group)
	}

	mw.quizResult = widget.NewLabel("")
	box.Add(widget.NewButton("Check answers", mw.onGradeQuiz))
	box.Add(mw.quizResult)
	return container.NewVScroll(box)
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

// setupEventHandlers keeps the status line in step with the session.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(learn.EventSampleAdded, func(data interface{}) {
		mw.status.SetText(mw.session.Status())
	})

	mw.session.On(learn.EventTrainingStarted, func(data interface{}) {
		mw.trainBtn.Disable()
		mw.status.SetText(learn.StatusTraining)
	})

	mw.session.On(learn.EventTrained, func(data interface{}) {
		if pred, ok := data.(learn.Prediction); ok {
			mw.prediction.SetText(pred.String())
		}
		mw.status.SetText(mw.session.Status())
		mw.trainBtn.Enable()
	})

	mw.session.On(learn.EventTrainingFailed, func(data interface{}) {
		mw.status.SetText(mw.session.Status())
		mw.trainBtn.Enable()
	})
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(path))

		if err := mw.ShowImage(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// ShowImage loads path, analyzes it and makes it the session's current image.
func (mw *MainWindow) ShowImage(path string) error {
	img, err := mw.load(path, mw.cfg.PreviewWidth)
	if err != nil {
		return err
	}
	rep, err := mw.analyzer.Analyze(context.Background(), img)
	if err != nil {
		return err
	}
	mw.session.Observe(rep.Features)

	mw.preview.Image = img
	mw.preview.Refresh()
	mw.hueLabel.SetText(rep.HueText())
	mw.valueLabel.SetText(rep.ValueText())
	mw.verdict.SetText(rep.Label.String())
	mw.swatch.FillColor = rep.Label.Color()
	mw.swatch.Refresh()

	if pred, err := mw.session.TryPredict(rep.Features); err == nil {
		mw.prediction.SetText(pred.String())
	}
	mw.SetTitle("Banana Ripeness Check - " + filepath.Base(path))
	return nil
}

func (mw *MainWindow) onAddSample(class learn.Class) {
	current := mw.session.Current()
	if current == nil {
		// Nothing selected yet.
		return
	}
	if _, err := mw.session.AddSample(current, class); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onTrain() {
	current := mw.session.Current()
	if current == nil {
		return
	}
	go func() {
		_, err := mw.session.Train(context.Background(), current)
		switch {
		case err == nil, errors.Is(err, learn.ErrInsufficientData), errors.Is(err, learn.ErrTrainingInProgress):
			// Reported through the session status.
		default:
			logger.Error("ui", "train: %v", err)
			dialog.ShowError(err, mw.Window)
		}
	}()
}

func (mw *MainWindow) onGradeQuiz() {
	answers := make(map[string]string, len(mw.questions))
	for _, q := range mw.questions {
		group := mw.answers[q.ID]
		for i, choice := range q.Choices {
			if group.Selected == choice {
				answers[q.ID] = quiz.Letter(i)
			}
		}
	}
	mw.quizResult.SetText(quiz.DefaultKey().Grade(answers).String())
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		fmt.Sprintf("ripecheck %s\nBuilt %s (%s)", version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

func labelFor(c learn.Class) string {
	switch c {
	case learn.Unripe:
		return "Unripe"
	case learn.Ripe:
		return "Ripe"
	case learn.Overripe:
		return "Overripe"
	default:
		return c.String()
	}
}
