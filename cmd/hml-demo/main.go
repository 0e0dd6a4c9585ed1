// Command hml-demo is the titanic example application: a three-op training
// pipeline and an inference host serving a survival model.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/hypermodel/bootstrap"
	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/inference"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/pipeline"
)

const appName = "titanic"

// Config is the demo's configuration. Bucket is the data lake the ops read
// and write.
type Config struct {
	config.Config `yaml:",inline" mapstructure:",squash"`
	Bucket        string `yaml:"bucket" mapstructure:"bucket"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run builds the application and executes args, returning the exit code.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	app, err := newApp(out, errOut)
	if err != nil {
		fmt.Fprintln(errOut, "A critical startup error occurred:", err)
		return 1
	}
	return app.Main(ctx, args)
}

func newApp(out, errOut io.Writer, opts ...bootstrap.Option) (*bootstrap.App[*Config], error) {
	cfg := &Config{Bucket: "grwdt-dev-lake"}
	cfg.Name = appName
	cfg.ContainerURL = "growingdata/demo-tragic_titanic"
	cfg.ScriptName = appName
	if err := config.LoadConfig(appName, cfg); err != nil {
		return nil, err
	}

	opts = append([]bootstrap.Option{bootstrap.WithOutput(out, errOut)}, opts...)
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}

	app.ConfigureOp(func(op *pipeline.Op) *pipeline.Op {
		return op.WithEnv("LAKE_BUCKET", cfg.Bucket)
	})
	if _, err := app.Register(titanicPipeline,
		pipeline.WithPipelineName(appName),
		pipeline.WithCron("0 0 * * *"),
		pipeline.WithExperiment("demos"),
	); err != nil {
		return nil, err
	}

	app.Inference.OnInit(func(ctx context.Context, a *inference.App) error {
		if err := a.RegisterModel(modelName, loadModel); err != nil {
			return err
		}
		a.Router().POST("/predict", predictHandler(a))
		return nil
	})
	return app, nil
}

func titanicPipeline(b *pipeline.Builder) error {
	training := b.Op(createTraining, pipeline.WithOpName("create-training"))
	test := b.Op(createTest, pipeline.WithOpName("create-test"))
	b.Op(trainModel, pipeline.WithOpName("train-model")).After(training, test)
	return b.Err()
}

func createTraining(ctx context.Context, args pipeline.Kwargs) (any, error) {
	return split(ctx, "training", args)
}

func createTest(ctx context.Context, args pipeline.Kwargs) (any, error) {
	return split(ctx, "test", args)
}

func split(ctx context.Context, name string, args pipeline.Kwargs) (any, error) {
	bucket := os.Getenv("LAKE_BUCKET")
	if b, ok := args.String("bucket"); ok {
		bucket = b
	}
	path := fmt.Sprintf("gs://%s/titanic/%s.csv", bucket, name)
	logger.WithComponent("titanic").WithContext(ctx).Info("wrote split", logger.Fields("split", name, "path", path))
	return path, nil
}

func trainModel(ctx context.Context, args pipeline.Kwargs) (any, error) {
	m := defaultModel()
	logger.WithComponent("titanic").WithContext(ctx).Info("trained model", logger.Fields("bias", m.Bias))
	return fmt.Sprintf("model %s trained (bias=%.2f)", modelName, m.Bias), nil
}

const modelName = "xgb"

// survivalModel is a logistic model over passenger class, sex and age.
type survivalModel struct {
	Bias, Class, Female, Age float64
}

func defaultModel() *survivalModel {
	return &survivalModel{Bias: 2.2, Class: -1.1, Female: 2.6, Age: -0.035}
}

func loadModel(ctx context.Context) (any, error) { return defaultModel(), nil }

func (m *survivalModel) predict(p passenger) float64 {
	z := m.Bias + m.Class*float64(p.Class) + m.Age*p.Age
	if p.Sex == "female" {
		z += m.Female
	}
	return 1 / (1 + math.Exp(-z))
}

type passenger struct {
	Class int     `json:"pclass" binding:"required,min=1,max=3"`
	Sex   string  `json:"sex" binding:"required,oneof=male female"`
	Age   float64 `json:"age" binding:"gte=0"`
}

func predictHandler(a *inference.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p passenger
		if err := c.ShouldBindJSON(&p); err != nil {
			inference.RespondError(c, errors.Validation(err.Error()))
			return
		}
		m, err := inference.Model[*survivalModel](c.Request.Context(), a, modelName)
		if err != nil {
			inference.RespondError(c, err)
			return
		}
		prob := m.predict(p)
		inference.RespondOK(c, gin.H{
			"survived":    prob >= 0.5,
			"probability": strconv.FormatFloat(prob, 'f', 3, 64),
		})
	}
}
