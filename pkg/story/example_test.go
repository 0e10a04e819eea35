package story_test

import (
	"fmt"

	"github.com/matzehuels/novella/pkg/story"
)

func ExampleStore_DeleteScene() {
	s := story.NewStore(nil)
	a := s.CreateScene()
	b := s.CreateScene()
	c, _ := s.AddChoice(a.ID)
	_ = s.SetChoiceTarget(c.ID, b.ID)

	s.DeleteScene(b.ID)

	fmt.Println("Scenes:", len(s.Scenes()))
	fmt.Println("Choices in A:", len(a.Choices))
	fmt.Println("Has target:", a.Choices[0].HasTarget())
	// Output:
	// Scenes: 1
	// Choices in A: 1
	// Has target: false
}

func ExampleFitImageSize() {
	w, h := story.FitImageSize(4000, 2000, story.LooseImageBox, story.LooseImageBox)
	fmt.Println(w, h)
	// Output:
	// 220 110
}
